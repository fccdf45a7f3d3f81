// Command webgen runs one prompt (or one saved model response) against a
// fresh project and prints what changed.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/config"
	"github.com/cosmos-link/webgen/internal/github"
	"github.com/cosmos-link/webgen/internal/llm"
	"github.com/cosmos-link/webgen/internal/logging"
	"github.com/cosmos-link/webgen/internal/session"
)

type options struct {
	prompt       string
	responseFile string
	model        string
	provider     string
	outDir       string
	showDiff     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// newRootCmd creates the webgen command
func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "webgen",
		Short: "Generate a web project from a prompt and print the files that changed",
		Long: `Send a prompt to the configured model (or read a saved response), merge the
fenced code blocks it contains into a freshly bootstrapped project and report
which files were created or updated.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "describe the app to build (reads stdin when empty)")
	flags.StringVarP(&opts.responseFile, "response", "r", "", "apply a saved model response instead of calling the API")
	flags.StringVar(&opts.model, "model", "", "model identifier")
	flags.StringVar(&opts.provider, "provider", "", "openai or deepseek (default from DEFAULT_PROVIDER)")
	flags.StringVarP(&opts.outDir, "out", "o", "", "write the resulting project to this directory")
	flags.BoolVar(&opts.showDiff, "diff", false, "print unified diffs of changed files")

	return cmd
}

func run(stdin io.Reader, stdout io.Writer, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: "console"}); err != nil {
		return err
	}
	defer logging.Sync()

	response, err := loadResponse(stdin, cfg, opts)
	if err != nil {
		return err
	}

	sess := session.New("cli")
	res := sess.ApplyResponse(response)

	if len(res.Changes) == 0 {
		fmt.Fprintln(stdout, "No code blocks detected.")
	}
	for _, c := range res.Changes {
		fmt.Fprintf(stdout, "%-9s %s\n", c.Action, c.Name)
		if opts.showDiff && c.Diff != "" {
			fmt.Fprintln(stdout, c.Diff)
		}
	}

	if opts.outDir != "" {
		if err := github.WriteEntries(opts.outDir, sess.Files()); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "💾 project written to %s\n", opts.outDir)
	}
	return nil
}

func loadResponse(stdin io.Reader, cfg *config.Config, opts options) (string, error) {
	if opts.responseFile != "" {
		data, err := os.ReadFile(opts.responseFile)
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		return string(data), nil
	}

	prompt := opts.prompt
	if strings.TrimSpace(prompt) == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt: %w", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	provider := opts.provider
	if provider == "" {
		provider = cfg.LLM.DefaultProvider
	}
	completer, err := llm.NewCompleter(provider, cfg.LLM)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Task.TaskTimeout)*time.Second)
	defer cancel()

	logging.Info("requesting completion", zap.String("provider", provider), zap.String("model", opts.model))
	return completer.Complete(ctx, llm.Request{Prompt: prompt, Model: opts.model})
}
