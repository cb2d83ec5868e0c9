// Package cli is the ultratext command line: batch conversion, search and
// replacement on document files.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dgallion1/ultratext/internal/logging"
	"github.com/dgallion1/ultratext/internal/session"
)

type app struct {
	fs       afero.Fs
	logLevel string
	logJSON  bool
	pdftotxt bool
}

// RootCmd builds the command tree over the OS filesystem.
func RootCmd() *cobra.Command {
	return NewRootCmd(afero.NewOsFs())
}

// NewRootCmd builds the command tree over fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}
	root := &cobra.Command{
		Use:           "ultratext",
		Short:         "Find, replace and convert rich-text documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	root.PersistentFlags().BoolVar(&a.pdftotxt, "pdftotext", true, "fall back to pdftotext for PDFs without a text layer")

	root.AddCommand(
		a.convertCmd(),
		a.findCmd(),
		a.replaceCmd(),
		a.importCmd(),
		a.statsCmd(),
		a.outlineCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := RootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(logging.Options{Output: cmd.ErrOrStderr(), Level: a.logLevel, JSON: a.logJSON})
}

// editor opens path in a fresh editor. The path doubles as the answer to
// every file dialog.
func (a *app) editor(cmd *cobra.Command, path string) (*session.Editor, error) {
	ed := session.New(session.NewFileHost(a.fs, session.FixedPath(path)), session.Always(true), a.logger(cmd))
	if _, err := ed.Open(cmd.Context()); err != nil {
		return nil, err
	}
	return ed, nil
}
