package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/adk-session-viewer/internal/config"
	"github.com/Zuo-Peng/adk-session-viewer/internal/history"
	"github.com/Zuo-Peng/adk-session-viewer/internal/inspect"
	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"github.com/Zuo-Peng/adk-session-viewer/internal/state"
	"github.com/Zuo-Peng/adk-session-viewer/internal/transcript"
	"github.com/Zuo-Peng/adk-session-viewer/internal/tui"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultWidth = 100

func viewCmd() *cobra.Command {
	var driveID, detail string
	var last, watchFile bool

	cmd := &cobra.Command{
		Use:   "view [file.json]",
		Short: "View a session log",
		Long: `Open a session log in the interactive viewer. Without arguments the
viewer starts with a chooser listing *.json files under sessions_root.

When stdout is not a terminal the transcript is printed instead; with
--detail the inspector for one event is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && driveID != "" {
				return errors.New("give either a file or --drive, not both")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			closeLog, err := initLogger(cfg, true)
			if err != nil {
				return err
			}
			defer closeLog()

			injector := setupDI(cfg)
			ld := do.MustInvoke[*loader.Loader](injector)
			db, err := do.Invoke[*history.DB](injector)
			if err != nil {
				// history is optional; the viewer works without it
				slog.Warn("history unavailable", "path", cfg.HistoryPath, "error", err)
				db = nil
			} else {
				defer db.Close()
			}

			src, err := resolveSource(args, driveID, last, db)
			if err != nil {
				return err
			}

			if detail == "" && term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(tui.Options{
					Loader:   ld,
					History:  db,
					Location: cfg.Location(),
					Root:     cfg.SessionsRoot,
					Initial:  src,
					Watch:    watchFile,
				})
			}

			if src == nil {
				return errors.New("no session given: pass a file, --drive <id> or --last")
			}
			sess, err := loadSource(cmd.Context(), ld, *src)
			if err != nil {
				return errors.New(loader.Message(err))
			}
			recordLoad(db, *src, sess)
			return printSession(os.Stdout, sess, detail, cfg, outputWidth())
		},
	}

	cmd.Flags().StringVar(&driveID, "drive", "", "Load the Drive file with this id")
	cmd.Flags().BoolVar(&last, "last", false, "Reopen the most recently loaded session")
	cmd.Flags().BoolVar(&watchFile, "watch", false, "Reload a local file when it changes")
	cmd.Flags().StringVar(&detail, "detail", "", "Print the inspector for this event id")

	return cmd
}

func resolveSource(args []string, driveID string, last bool, db *history.DB) (*state.Source, error) {
	switch {
	case len(args) > 0:
		path, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		return &state.Source{Kind: state.SourceLocal, Ref: path}, nil
	case driveID != "":
		return &state.Source{Kind: state.SourceDrive, Ref: driveID}, nil
	case last:
		if db == nil {
			return nil, errors.New("--last needs the history database")
		}
		loc, err := db.Last()
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		if loc == nil {
			return nil, errors.New("no session has been loaded yet")
		}
		return &state.Source{Kind: state.SourceKind(loc.Source), Ref: loc.Ref}, nil
	}
	return nil, nil
}

func loadSource(ctx context.Context, ld *loader.Loader, src state.Source) (*session.Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if src.Kind == state.SourceDrive {
		return ld.LoadRemote(ctx, src.Ref)
	}
	return ld.LoadFile(src.Ref)
}

func recordLoad(db *history.DB, src state.Source, sess *session.Session) {
	if db == nil {
		return
	}
	err := db.Record(history.Location{
		Source:     string(src.Kind),
		Ref:        src.Ref,
		AppName:    sess.AppName,
		SessionID:  sess.ID,
		EventCount: len(sess.Events),
	})
	if err != nil {
		slog.Warn("record history failed", "error", err)
	}
}

func printSession(w io.Writer, sess *session.Session, detail string, cfg *config.Config, width int) error {
	if detail != "" {
		ev, ok := sess.Event(detail)
		if !ok {
			return fmt.Errorf("event not found: %s", detail)
		}
		if ev.IsUser() {
			return fmt.Errorf("event %s is a user message; only agent events can be inspected", detail)
		}
		_, err := fmt.Fprintln(w, inspect.Render(ev, inspect.Options{Width: width, ExpandSignature: true}))
		return err
	}

	fmt.Fprintf(w, "App: %s  User: %s\n\n", orDash(sess.AppName), orDash(sess.UserID))
	out, _ := transcript.Render(sess.Events, transcript.Options{
		Width:    width,
		Location: cfg.Location(),
	})
	_, err := fmt.Fprintln(w, out)
	return err
}

func outputWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
