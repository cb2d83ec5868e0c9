package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/index"
	"github.com/dgallion1/ultratext/internal/parser"
)

// Worker processes a single import job.
type Worker struct {
	apply Applier
	log   *slog.Logger
	opts  parser.Options
}

func NewWorker(apply Applier, log *slog.Logger, opts parser.Options) *Worker {
	return &Worker{apply: apply, log: log, opts: opts}
}

// Process parses, indexes and applies one job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "session_id", job.SessionID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.opts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		w.fail(job, "parsing", err.Error())
		return
	}

	root, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		w.fail(job, "parsing", fmt.Sprintf("parse: %s", err))
		return
	}
	if err := doctree.Validate(root); err != nil {
		log.Error("importer produced an invalid tree", "error", err)
		w.fail(job, "parsing", err.Error())
		return
	}

	// Phase 2: Index
	job.SetStatus(StatusIndexing, "indexing")
	job.SetContentHash(ContentHashHex([]byte(doctree.Text(root))))
	stats := index.Count(root)
	job.SetStats(stats)
	log.Info("parsed document", "blocks", stats.Blocks, "words", stats.Words)

	if err := ctx.Err(); err != nil {
		w.fail(job, "indexing", err.Error())
		return
	}

	// Phase 3: Apply
	if w.apply != nil {
		job.SetStatus(StatusApplying, "applying")
		if err := w.apply(ctx, job, root); err != nil {
			log.Error("apply failed", "error", err)
			w.fail(job, "applying", fmt.Sprintf("apply: %s", err))
			return
		}
	}

	job.SetResult(root)
	job.SetStatus(StatusCompleted, "done")
	log.Info("import complete")
}

func (w *Worker) fail(job *Job, phase, msg string) {
	job.AddError(msg)
	job.SetFileData(nil)
	job.SetStatus(StatusFailed, phase)
}
