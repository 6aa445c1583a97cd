package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/domain"
	fsinfra "github.com/zPat/easy-edgedb/internal/infra/fs"
	"github.com/zPat/easy-edgedb/internal/infra/memory"
	"github.com/zPat/easy-edgedb/internal/render"
)

// newQuizCmd walks through a chapter's practice questions in the terminal.
// Enter reveals the recorded answer, n moves on, q quits.
func newQuizCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "quiz <chapter>",
		Short: "Practice a chapter's questions in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil || number < 1 {
				return fmt.Errorf("not a chapter number: %q", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo := memory.NewChapterRepository(fsinfra.NewLoader(cfg.Content.Dir), time.Minute)
			book := app.NewBookService(repo, nil, logger)
			practice := app.NewPracticeService(book, memory.NewSessionStore())

			term, err := render.NewTerm(width)
			if err != nil {
				return err
			}

			session, quiz, err := practice.Start(ctx, number)
			if errors.Is(err, domain.ErrNoQuiz) {
				return fmt.Errorf("chapter %d has no practice section", number)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprintf(out, "Chapter %d — %d questions. Enter reveals the answer, n skips, q quits.\n", number, len(quiz.Questions))

		walk:
			for {
				_, question, index, done, err := practice.Next(ctx, session.ID)
				if err != nil {
					return err
				}
				if done {
					break
				}

				rendered, err := term.Question(index, question)
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)

				for {
					if !in.Scan() {
						break walk
					}
					switch strings.TrimSpace(in.Text()) {
					case "":
						_, answer, revealed, err := practice.Reveal(ctx, session.ID)
						if errors.Is(err, domain.ErrAnswersNotFound) {
							fmt.Fprintln(out, "No answers are recorded for this chapter.")
							continue
						}
						if err != nil {
							return err
						}
						renderedAnswer, err := term.Answer(revealed, answer)
						if err != nil {
							return err
						}
						fmt.Fprint(out, renderedAnswer)
					case "n":
					case "q":
						break walk
					default:
						fmt.Fprintln(out, "Enter reveals the answer, n skips, q quits.")
						continue
					}
					break
				}
			}

			if err := practice.End(ctx, session.ID); err != nil {
				return err
			}
			fmt.Fprintln(out, "End of practice.")
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	return cmd
}
