package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/pmprep/internal/aggregate"
	"github.com/hpungsan/pmprep/internal/app"
	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/notes"
	"github.com/hpungsan/pmprep/internal/question"
	"github.com/hpungsan/pmprep/internal/questionstore"
	"github.com/hpungsan/pmprep/internal/web"
)

// maxNoteBytes bounds note content read from stdin.
const maxNoteBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
// a may be nil when only help or version output is needed.
func newCLIApp(a *app.App) *cli.App {
	cliApp := &cli.App{
		Name:    "pmprep",
		Usage:   "PM interview question tracker",
		Version: Version,
		Commands: []*cli.Command{
			categoriesCmd(a),
			listCmd(a),
			showCmd(a),
			toggleCmd(a),
			progressCmd(a),
			clearCmd(a),
			noteCmd(a),
			panelCmd(a),
			serveCmd(a),
			importCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// categoriesCmd creates the categories command.
func categoriesCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "Show every category with its subcategories and completion counts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "select", Aliases: []string{"s"}, Usage: "Category to mark as selected"},
		},
		Action: func(c *cli.Context) error {
			_ = a.Tracker.Load(c.Context)

			if name := c.String("select"); name != "" {
				if err := a.Tracker.Select(name); err != nil {
					return outputError(err)
				}
				a.Session.StartCategoryView(name)
				defer a.Session.EndCategoryView(name)
			}
			return outputJSON(a.Tracker.Snapshot())
		},
	}
}

// listCmd creates the list command.
func listCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List questions, optionally filtered",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
			&cli.StringFlag{Name: "sub-category", Aliases: []string{"s"}, Usage: "Filter by subcategory"},
		},
		Action: func(c *cli.Context) error {
			loadErr := a.Tracker.Load(c.Context)

			out := struct {
				Questions []question.Question `json:"questions"`
				LoadError string              `json:"loadError,omitempty"`
			}{
				Questions: a.Tracker.Questions(question.Filter{
					Category:    c.String("category"),
					SubCategory: c.String("sub-category"),
				}),
			}
			if loadErr != nil {
				out.LoadError = loadErr.Error()
			}
			return outputJSON(out)
		},
	}
}

// showCmd creates the show command.
func showCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a question with its note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "Include the rendered HTML of the markdown fields"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("question id is required"))
			}
			if err := a.Tracker.Load(c.Context); err != nil {
				return outputError(err)
			}
			q, err := a.Tracker.Question(id)
			if err != nil {
				return outputError(err)
			}

			out := struct {
				Question question.Question  `json:"question"`
				Note     *notes.Note        `json:"note,omitempty"`
				HTML     *question.Rendered `json:"html,omitempty"`
			}{Question: q}
			if n, ok := a.Notes.Get(notes.QuestionKey(q.ID)); ok {
				out.Note = &n
			}
			if c.Bool("html") {
				rendered := question.RenderHTML(q)
				out.HTML = &rendered
			}
			a.Session.Revisit(q.ID, q.Question, q.Category)
			return outputJSON(out)
		},
	}
}

// toggleCmd creates the toggle command.
func toggleCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Flip the completion of a question",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("question id is required"))
			}
			if err := a.Tracker.Load(c.Context); err != nil {
				return outputError(err)
			}
			completed, err := a.Tracker.Toggle(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			category := ""
			if q, qerr := a.Tracker.Question(id); qerr == nil {
				category = q.Category
			}
			a.Session.Completion(id, category, completed)
			return outputJSON(map[string]any{"id": id, "isCompleted": completed})
		},
	}
}

// progressCmd creates the progress command.
func progressCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Show completion totals",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Only this category"},
		},
		Action: func(c *cli.Context) error {
			_ = a.Tracker.Load(c.Context)
			snap := a.Tracker.Snapshot()

			if name := c.String("category"); name != "" {
				cat, ok := aggregate.Find(snap.Categories, name)
				if !ok {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown category: %s", name)))
				}
				return outputJSON(cat)
			}
			return outputJSON(snap.Summary)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Clear all local completion progress",
		Action: func(c *cli.Context) error {
			if err := a.Tracker.ClearAll(); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"cleared": true})
		},
	}
}

// noteCmd creates the note command and its subcommands. The key argument is
// a question id, "question:<id>", or "overall".
func noteCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Read and write notes",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a note",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					key, err := notes.ParseKey(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					n, ok := a.Notes.Get(key)
					if !ok {
						return outputError(errors.NewNotFound(c.Args().First()))
					}
					return outputJSON(map[string]any{
						"key":        key.Arg(),
						"content":    n.Content,
						"lastEdited": n.LastEdited,
						"wordCount":  notes.WordCount(n.Content),
					})
				},
			},
			{
				Name:      "save",
				Usage:     "Save a note (reads content from stdin)",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					key, err := notes.ParseKey(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if !stdinHasData() {
						return outputError(errors.NewInvalidRequest("note content must be piped via stdin"))
					}
					a.Session.StartNoteEdit()
					content, err := readStdin(maxNoteBytes)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					n, err := a.Notes.Save(key, content)
					if err != nil {
						return outputError(err)
					}
					a.Session.EndNoteEdit(string(key), len(content))
					return outputJSON(n)
				},
			},
			{
				Name:      "clear",
				Usage:     "Remove a note",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					key, err := notes.ParseKey(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if !a.Notes.Clear(key) {
						return outputError(errors.NewPersistence(notes.StorageKey, nil))
					}
					return outputJSON(map[string]any{"cleared": true})
				},
			},
			{
				Name:      "export",
				Usage:     "Write a note as plain text",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Export directory (default: ~/.pmprep/exports)"},
				},
				Action: func(c *cli.Context) error {
					key, err := notes.ParseKey(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					dir := c.String("dir")
					if dir == "" {
						dir = a.ExportDir
					}
					path, err := a.Notes.Export(key, dir)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"path": path})
				},
			},
		},
	}
}

// panelCmd creates the panel command.
func panelCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "panel",
		Usage: "Show or flip whether the overall-notes panel is expanded",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "toggle", Usage: "Flip the stored state"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("toggle") {
				return outputJSON(map[string]any{"expanded": a.Panel.Expanded()})
			}
			expanded, err := a.Panel.Toggle()
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"expanded": expanded})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the question store HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := a.Config.ServerBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := a.Config.ServerPort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			store := questionstore.New(a.DB, question.DefaultTaxonomy(), a.Log)
			srv := web.NewServer(store, a.Log, bind, port)
			if err := web.Run(c.Context, srv, a.Log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// importCmd creates the import command.
func importCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import questions into the local question store from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			store := questionstore.New(a.DB, question.DefaultTaxonomy(), a.Log)
			output, err := store.Import(questionstore.ImportInput{
				Path: c.String("path"),
				Mode: questionstore.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	pErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin. Longer input is an error.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
