package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"examsim/internal/cache"
	"examsim/internal/config"
	"examsim/internal/model"
	"examsim/internal/service"

	"github.com/spf13/cobra"
)

var (
	playSubject int
	playCount   int
	playResume  int
	playForce   bool
	playToken   string
	playDB      string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a simulation session against the session service",
	Long: `Start (--subject) or resume (--resume) a session and answer it from the
terminal. Pausing writes a checkpoint to a local SQLite file so the next
--resume continues at the same question.

Commands at the prompt:
  A..Z          answer the current question
  draft <X>     save X as a draft selection
  next / back   next / previous question
  go <k>        go to question k
  finish        finalize the session
  pause         pause and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if playSubject <= 0 && playResume <= 0 {
			return errors.New("either --subject or --resume is required")
		}

		cfg := config.Load()
		svcCfg := cfg.SessionService
		if !svcCfg.IsEnabled() {
			return errors.New("SESSION_SERVICE_URL is not set")
		}
		token := playToken
		if token == "" {
			token = os.Getenv("SIMCTL_TOKEN")
		}
		ctx := service.WithAccessToken(context.Background(), token)

		dbPath := playDB
		if dbPath == "" {
			var err error
			if dbPath, err = defaultDBPath(); err != nil {
				return err
			}
		}
		checkpoints, closeDB, err := cache.OpenSQLiteCheckpointCache(dbPath)
		if err != nil {
			return fmt.Errorf("open checkpoint db: %w", err)
		}
		defer closeDB()

		client := service.NewSessionClient(svcCfg.BaseURL, svcCfg.Token, svcCfg.Timeout())
		store := service.NewProgressStore("cli", client, checkpoints)

		if playResume > 0 {
			if err := store.LoadSession(ctx, playResume); err != nil {
				return err
			}
			store.Resume(ctx)
		} else {
			opts := model.StartOptions{QuestionCount: playCount, ForceRestart: playForce}
			if err := store.StartSession(ctx, playSubject, opts); err != nil {
				var active *service.SessionActiveError
				if errors.As(err, &active) {
					fmt.Printf("⚠️  Session %d (%s) is already in progress: %d/%d answered\n",
						active.Active.ID, active.Active.Subject, active.Active.Progress.Answered, active.Active.Progress.Total)
					fmt.Println("   Use --resume", active.Active.ID, "to continue it or --force to start over.")
					return nil
				}
				return err
			}
		}

		return runSession(ctx, store, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	playCmd.Flags().IntVar(&playSubject, "subject", 0, "subject id to start a session for")
	playCmd.Flags().IntVarP(&playCount, "count", "n", 0, "number of questions (server default when 0)")
	playCmd.Flags().IntVar(&playResume, "resume", 0, "session id to resume")
	playCmd.Flags().BoolVar(&playForce, "force", false, "abandon an active session and start a new one")
	playCmd.Flags().StringVar(&playToken, "token", "", "student access token (defaults to $SIMCTL_TOKEN)")
	playCmd.Flags().StringVar(&playDB, "db", "", "checkpoint database (defaults to ~/.examsim/checkpoints.db)")
}

func runSession(ctx context.Context, store *service.ProgressStore, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		state := store.State()
		if state.Completed {
			printSummary(out, state)
			return nil
		}
		q := state.CurrentQuestion()
		if q == nil {
			fmt.Fprintln(out, "No questions in this session.")
			return nil
		}
		printQuestion(out, state, q)
		if sel := store.RestoreSelection(ctx); sel != "" {
			fmt.Fprintf(out, "(draft: %s)\n", sel)
		}

		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			store.Pause(ctx)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch cmdWord := strings.ToLower(fields[0]); {
		case cmdWord == "next":
			store.Advance()
		case cmdWord == "back":
			store.Retreat()
		case cmdWord == "go" && len(fields) == 2:
			k, err := strconv.Atoi(fields[1])
			if err == nil {
				store.JumpTo(k - 1)
			}
		case cmdWord == "draft" && len(fields) == 2:
			store.SaveDraft(ctx, fields[1])
		case cmdWord == "finish":
			if err := store.FinalizeSession(ctx); err != nil {
				fmt.Fprintln(out, "❌ Error:", err)
			}
		case cmdWord == "pause":
			store.Pause(ctx)
			fmt.Fprintf(out, "⏸  Paused at question %d. Resume with --resume %d\n", state.Cursor+1, state.SessionID)
			return nil
		case len(cmdWord) == 1 && cmdWord[0] >= 'a' && cmdWord[0] <= 'z':
			if err := store.SubmitAnswer(ctx, cmdWord); err != nil {
				fmt.Fprintln(out, "❌ Error:", err)
				continue
			}
			printVerdict(out, store.State(), q)
			store.Advance()
		default:
			fmt.Fprintln(out, "Unknown command")
		}
	}
}

func printQuestion(out io.Writer, state model.SessionState, q *model.RandomizedQuestion) {
	fmt.Fprintln(out, "\n========================================")
	fmt.Fprintf(out, "Question %d/%d", state.Cursor+1, len(state.Questions))
	if state.Paused {
		fmt.Fprint(out, " (paused)")
	}
	fmt.Fprintf(out, "   answered %d, accuracy %.0f%%\n", state.Stats.Total, state.Stats.AccuracyPct)
	fmt.Fprintln(out, "========================================")
	if q.Context != "" {
		fmt.Fprintln(out, q.Context)
	}
	fmt.Fprintln(out, q.Prompt)

	labels := make([]string, 0, len(q.PresentedOptions))
	for label := range q.PresentedOptions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(out, "  %s) %s\n", label, q.PresentedOptions[label])
	}
}

func printVerdict(out io.Writer, state model.SessionState, q *model.RandomizedQuestion) {
	for _, a := range state.Answers {
		if a.QuestionID != q.ID {
			continue
		}
		if a.Correct {
			fmt.Fprintln(out, "✅ Correct")
		} else {
			fmt.Fprintf(out, "❌ Incorrect, the answer was %s\n", q.PresentedCorrect)
		}
		if q.Explanation != "" {
			fmt.Fprintln(out, q.Explanation)
		}
		return
	}
}

func printSummary(out io.Writer, state model.SessionState) {
	s := state.Stats
	fmt.Fprintln(out, "\n🏁 Session complete")
	fmt.Fprintf(out, "  correct:    %d\n", s.Correct)
	fmt.Fprintf(out, "  incorrect:  %d\n", s.Incorrect)
	fmt.Fprintf(out, "  completion: %.0f%%\n", s.CompletionPct)
	fmt.Fprintf(out, "  accuracy:   %.0f%%\n", s.AccuracyPct)
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".examsim")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create data directory: %w", err)
	}
	return filepath.Join(dir, "checkpoints.db"), nil
}
