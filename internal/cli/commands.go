package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/ultratext/internal/convert"
	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/parser"
	"github.com/dgallion1/ultratext/internal/search"
	"github.com/dgallion1/ultratext/internal/session"
)

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert between JSON, Markdown and plain text by file extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.editor(cmd, args[0])
			if err != nil {
				return err
			}
			return a.export(cmd, ed, args[1])
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <in> <out>",
		Short: "Import HTML, CSV, DOCX, PDF, Markdown or text into a document file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fs.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ed := session.New(nil, session.Always(true), a.logger(cmd))
			if _, err := ed.Import(cmd.Context(), f, args[0], parser.Options{PDFFallbackPdftotext: a.pdftotxt}); err != nil {
				return err
			}
			return a.export(cmd, ed, args[1])
		},
	}
}

func (a *app) export(cmd *cobra.Command, ed *session.Editor, out string) error {
	format := convert.DetectFormat(out)
	ed.SetHost(session.NewFileHost(a.fs, session.FixedPath(out)))
	data, err := ed.Export(format)
	if err != nil {
		return err
	}
	if _, err := ed.Host().SaveFile(cmd.Context(), session.SaveRequest{SuggestedPath: out, Content: data, Format: format}); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", out, format.Label(), len(data))
	return nil
}

func (a *app) findCmd() *cobra.Command {
	var (
		cursor int
		prev   bool
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "find <file> <query>",
		Short: "Find the next occurrence of a query, case-insensitively",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.editor(cmd, args[0])
			if err != nil {
				return err
			}
			root := ed.Document().Root()
			out := cmd.OutOrStdout()

			if all {
				matches := search.FindAll(root, args[1])
				for _, m := range matches {
					fmt.Fprintln(out, formatMatch(ed.Document(), m))
				}
				fmt.Fprintf(out, "%d matches\n", len(matches))
				return nil
			}

			ed.Document().SetSelection(doctree.Selection{From: cursor, To: cursor})
			var (
				m     search.Match
				found bool
			)
			if prev {
				m, found = ed.FindPrev(args[1])
			} else {
				m, found = ed.Find(args[1])
			}
			if !found {
				fmt.Fprintln(out, "no match")
				return nil
			}
			fmt.Fprintln(out, formatMatch(ed.Document(), m))
			return nil
		},
	}
	cmd.Flags().IntVar(&cursor, "cursor", 0, "position to search from")
	cmd.Flags().BoolVar(&prev, "prev", false, "search backwards")
	cmd.Flags().BoolVar(&all, "all", false, "list every occurrence")
	return cmd
}

func formatMatch(doc *doctree.Document, m search.Match) string {
	text, err := doc.TextBetween(m.From, m.To)
	if err != nil {
		text = ""
	}
	return fmt.Sprintf("%d-%d %s", m.From, m.To, strconv.Quote(text))
}

func (a *app) replaceCmd() *cobra.Command {
	var (
		all bool
		out string
	)
	cmd := &cobra.Command{
		Use:   "replace <file> <query> <replacement>",
		Short: "Replace the first or every occurrence of a query and save",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.editor(cmd, args[0])
			if err != nil {
				return err
			}

			n := 0
			if all {
				if n, err = ed.ReplaceAll(args[1], args[2]); err != nil {
					return err
				}
			} else {
				before := len(ed.Document().History())
				if _, _, err := ed.Replace(args[1], args[2]); err != nil {
					return err
				}
				n = len(ed.Document().History()) - before
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d replaced\n", n)
			if n == 0 {
				return nil
			}

			if out != "" {
				return a.export(cmd, ed, out)
			}
			_, err = ed.Save(cmd.Context())
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "replace every occurrence")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result here instead of overwriting the input")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Count text blocks, words and characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.editor(cmd, args[0])
			if err != nil {
				return err
			}
			s := ed.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "blocks: %d\nwords: %d\nchars: %d\n", s.Blocks, s.Words, s.Chars)
			return nil
		},
	}
}

func (a *app) outlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the heading outline with positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.editor(cmd, args[0])
			if err != nil {
				return err
			}
			for _, sec := range ed.Outline() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s [%d-%d] %d words\n",
					strings.Repeat("  ", max(sec.Level-1, 0)), sec.Title, sec.Start, sec.End, sec.Words)
			}
			return nil
		},
	}
}
