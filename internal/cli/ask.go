package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/chat"
)

var (
	askURL     string
	askTimeout time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the RAN assistant a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := askURL
		timeout := askTimeout
		if url == "" || !cmd.Flags().Changed("timeout") {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Chat.URL
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.Chat.Timeout
			}
		}
		if url == "" {
			return errors.New("no assistant configured: set chat.url or pass --url")
		}
		return runAsk(cmd.Context(), chat.NewClient(url, timeout), strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func init() {
	askCmd.Flags().StringVar(&askURL, "url", "", "assistant endpoint (overrides chat.url)")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "request timeout")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, asker chat.Asker, query string, out io.Writer) error {
	answer, err := asker.Ask(ctx, query)
	if err != nil {
		return fmt.Errorf("asking assistant: %w", err)
	}
	_, err = fmt.Fprintln(out, answer.Text)
	return err
}
