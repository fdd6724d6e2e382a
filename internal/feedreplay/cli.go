package feedreplay

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/trophycase/pkg/logger"
)

// NewRootCommand builds the feed-replay command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "feed-replay",
		Short: "Generate and replay game-service feeds against trophycase",
		Long: `feed-replay produces synthetic achievement feeds and sends recorded feeds
to a running trophycase service, one message at a time and in file order.

Feed files are JSON lines: {"id": "<delivery id>", "payload": {...}}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCommand(), newReplayCommand())
	return root
}

func newGenerateCommand() *cobra.Command {
	var (
		cfg    GenerateConfig
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic feed file",
		Example: `  feed-replay generate --titles 3 --achievements 20 --unlocks 5 -o feed.jsonl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = "feed_" + time.Now().Format("20060102_150405") + ".jsonl"
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()

			n, err := Generate(cmd.Context(), cfg, f)
			if err != nil {
				return err
			}
			PrintGenerated(cmd.OutOrStdout(), output, n)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Titles, "titles", DefaultTitles, "Number of titles to play")
	cmd.Flags().IntVar(&cfg.Achievements, "achievements", DefaultAchievements, "Achievements per title")
	cmd.Flags().IntVar(&cfg.Unlocks, "unlocks", DefaultUnlocks, "Achievements unlocked per title")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "Random seed (0 uses the clock)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: feed_TIMESTAMP.jsonl)")
	return cmd
}

func newReplayCommand() *cobra.Command {
	var (
		cfg      ReplayConfig
		logLevel string
	)
	cmd := &cobra.Command{
		Use:     "replay FILE",
		Short:   "Send a feed file to the service",
		Example: `  feed-replay replay feed.jsonl --url http://localhost:9080 --delay 500ms --connect`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			stats, err := Replay(cmd.Context(), cfg, f)
			PrintSummary(cmd.OutOrStdout(), stats)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d messages failed", stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", DefaultBaseURL, "Base URL of the service")
	cmd.Flags().DurationVar(&cfg.Delay, "delay", 0, "Pause between messages")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "HTTP request timeout")
	cmd.Flags().BoolVar(&cfg.Connect, "connect", false, "Report the feed as connected first")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every message")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	return cmd
}
