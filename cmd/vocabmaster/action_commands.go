package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hpn/vocab-master/internal/action"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/ui"
	"github.com/hpn/vocab-master/internal/worker"
)

func newActionCommands(cc *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newArticleCommand(cc),
		newEvaluateCommand(cc),
		newExamplesCommand(cc),
		newTestCommand(cc),
	}
}

func newArticleCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "article WORD...",
		Short: "Generate a short article that uses every word",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := runAction(cmd, cc, action.TagGenerateArticle, map[string]any{"words": args})
			if err != nil {
				return err
			}
			return exitFor(cc.console(cmd).Outcome(o))
		},
	}
}

func newEvaluateCommand(cc *commandContext) *cobra.Command {
	var word string

	cmd := &cobra.Command{
		Use:   "evaluate --word WORD SENTENCE",
		Short: "Get feedback on a sentence written with a word",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{
				"sentence":    strings.Join(args, " "),
				"target_word": word,
			}
			o, err := runAction(cmd, cc, action.TagEvaluateSentence, params)
			if err != nil {
				return err
			}
			return exitFor(cc.console(cmd).Outcome(o))
		},
	}

	cmd.Flags().StringVarP(&word, "word", "w", "", "The vocabulary word the sentence should use")
	_ = cmd.MarkFlagRequired("word")
	return cmd
}

func newExamplesCommand(cc *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "examples WORD",
		Short: "Generate example sentences for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"word": args[0], "count": count}
			o, err := runAction(cmd, cc, action.TagGenerateExamples, params)
			if err != nil {
				return err
			}
			return exitFor(cc.console(cmd).Outcome(o))
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", action.DefaultExampleCount, "Number of sentences")
	return cmd
}

func newTestCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the configured provider answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"message": action.DefaultTestMessage}
			o, err := runAction(cmd, cc, action.TagTest, params)
			if err != nil {
				return err
			}

			provider, model := "provider", ""
			if path, err := cc.configPath(); err == nil {
				if cfg, err := config.Load(path); err == nil {
					provider, model = string(cfg.Provider), cfg.Model()
				}
			}
			return exitFor(cc.console(cmd).Connection(provider, model, o))
		},
	}
}

// runAction starts the action on a worker and waits for its outcome. An
// interrupt stops the task; nothing is reported for it.
func runAction(cmd *cobra.Command, cc *commandContext, tag action.Tag, params map[string]any) (worker.Outcome, error) {
	w, err := cc.newWorker()
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var outcome worker.Outcome
	task := w.Start(ctx, string(tag), params, func(o worker.Outcome) {
		outcome = o
	})

	go func() {
		select {
		case <-ctx.Done():
			task.Stop()
		case <-task.Done():
		}
	}()

	task.Wait()
	if outcome == nil {
		return nil, context.Canceled
	}
	return outcome, nil
}

func exitFor(code int) error {
	if code == ui.ExitSuccess {
		return nil
	}
	return &exitError{code: code}
}
