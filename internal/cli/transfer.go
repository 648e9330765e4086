package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/interviewbook/internal/answers"
	"github.com/mind-engage/interviewbook/internal/app"
	"github.com/mind-engage/interviewbook/internal/structure"
)

// Document is the portable form of one user's interview.
type Document struct {
	User     string       `yaml:"user" json:"user"`
	Chapters []DocChapter `yaml:"chapters" json:"chapters"`
	Answers  []DocAnswer  `yaml:"answers,omitempty" json:"answers,omitempty"`
}

type DocChapter struct {
	Title     *string  `yaml:"title,omitempty" json:"title,omitempty"`
	Questions []string `yaml:"questions" json:"questions"`
}

type DocAnswer struct {
	Index int    `yaml:"index" json:"index"`
	Text  string `yaml:"text" json:"text"`
}

func newDumpCommand(opts *RootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print a user's chapters, questions and answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				doc, err := dump(ctx, a, user)
				if err != nil {
					return wrapExit(ExitFailure, "dump "+user, err)
				}
				return write(cmd.OutOrStdout(), opts.Format, doc)
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func dump(ctx context.Context, a *app.App, user string) (Document, error) {
	st, err := a.Structure.FetchStructure(ctx, user)
	if err != nil {
		return Document{}, err
	}
	list, err := a.Answers.List(ctx, user)
	if err != nil {
		return Document{}, err
	}
	doc := Document{User: user, Chapters: make([]DocChapter, 0, len(st.Chapters))}
	for _, c := range st.Chapters {
		dc := DocChapter{Title: c.Title, Questions: make([]string, 0, len(c.Questions))}
		for _, q := range c.Questions {
			dc.Questions = append(dc.Questions, q.Text)
		}
		doc.Chapters = append(doc.Chapters, dc)
	}
	for _, an := range list {
		doc.Answers = append(doc.Answers, DocAnswer{Index: an.QuestionIndex, Text: an.Text})
	}
	return doc, nil
}

type importSummary struct {
	User     string `yaml:"user" json:"user"`
	Chapters int    `yaml:"chapters" json:"chapters"`
	Total    int    `yaml:"total" json:"total"`
	Answers  int    `yaml:"answers" json:"answers"`
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	var (
		user       string
		file       string
		clearExtra bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load chapters and questions from a YAML document",
		Long: "Chapter N of the document replaces the questions of the user's chapter N; " +
			"missing chapters are created. Existing chapter titles are left as they are.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), file)
			if err != nil {
				return wrapExit(ExitCommandError, "read "+file, err)
			}
			if user == "" {
				user = doc.User
			}
			if user == "" {
				return wrapExit(ExitCommandError, "no user: pass --user or set user in the document", nil)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				sum, err := importDocument(ctx, a, user, doc, clearExtra)
				if err != nil {
					return wrapExit(ExitFailure, "import "+user, err)
				}
				return write(cmd.OutOrStdout(), opts.Format, sum)
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id (defaults to the document's user)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "document path, - for stdin")
	cmd.Flags().BoolVar(&clearExtra, "clear-extra", false, "empty the user's chapters that the document does not mention")
	return cmd
}

func readDocument(stdin io.Reader, path string) (Document, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return Document{}, err
		}
		defer f.Close()
		r = f
	}
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode yaml: %w", err)
	}
	return doc, nil
}

func importDocument(ctx context.Context, a *app.App, user string, doc Document, clearExtra bool) (importSummary, error) {
	in := structure.ImportInput{UserID: user, ClearExtra: clearExtra}
	for _, dc := range doc.Chapters {
		in.Chapters = append(in.Chapters, structure.ImportChapter{Title: dc.Title, Texts: dc.Questions})
	}
	if doc.Answers != nil {
		in.Answers = make([]answers.Answer, len(doc.Answers))
		for i, da := range doc.Answers {
			in.Answers[i] = answers.Answer{QuestionIndex: da.Index, Text: da.Text}
		}
	}
	res, err := a.Structure.Import(ctx, in)
	if err != nil {
		return importSummary{}, err
	}
	return importSummary{User: user, Chapters: res.Chapters, Total: res.Total, Answers: res.Answers}, nil
}
