// Command desk-console runs a front desk conversation as text on stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/room4-2/FrontDesk/app"
	"github.com/room4-2/FrontDesk/config"
	"github.com/room4-2/FrontDesk/dialogue"
	"github.com/room4-2/FrontDesk/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	store    string
	dbPath   string
	redis    string
	anchor   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "desk-console",
		Short: "Talk to the front desk from a terminal",
		Long: `desk-console drives the same dialogue the voice transports use, one line per turn.

Examples:
  # Chat against a throwaway in-memory store
  desk-console chat --store memory

  # Inspect the HR audit log of the local database
  desk-console hr-log --db data/frontdesk.db`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.store, "store", "", "storage backend: sqlite or memory (default from STORAGE_BACKEND)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path (default from DATABASE_PATH)")
	root.PersistentFlags().StringVar(&opts.redis, "redis", "", "Redis address for the course cache; empty keeps it in process")
	root.PersistentFlags().StringVar(&opts.anchor, "anchor", "", "first autoschedule day, YYYY-MM-DD")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newChatCmd(opts), newCoursesCmd(opts), newHRLogCmd(opts))
	return root
}

func (o *options) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o.store != "" {
		cfg.StorageBackend = o.store
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}
	if o.anchor != "" {
		cfg.AutoscheduleAnchor = o.anchor
	}
	cfg.RedisURL = o.redis

	logger, err := logging.New(o.logLevel, "console")
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Hold a conversation, one transcript per line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer desk.Close()
			return chat(cmd.Context(), desk.Machine, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// chat runs turns until input ends or the caller says "bye".
func chat(ctx context.Context, m *dialogue.Machine, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Emma:", m.Greeting())

	c := dialogue.Context{State: dialogue.Unidentified}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "bye") {
			fmt.Fprintln(out, "Emma: Goodbye!")
			return nil
		}
		turn := m.Step(ctx, c, line)
		c = turn.Next
		fmt.Fprintln(out, "Emma:", turn.Reply)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func newCoursesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the course catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer desk.Close()

			courses, err := desk.Store.ListCourses(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list courses: %w", err)
			}
			for _, c := range courses {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-9s %s\n", c.Name, c.Duration, c.FeeText())
			}
			return nil
		},
	}
}

func newHRLogCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hr-log",
		Short: "Show the most recent HR commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer desk.Close()

			commands, err := desk.Store.RecentHRCommands(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read HR log: %w", err)
			}
			if len(commands) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No HR commands recorded.")
				return nil
			}
			for _, c := range commands {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %s\n", c.ExecutedAt.Format("2006-01-02 15:04:05"), c.ExecutedBy, c.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of commands to show")
	return cmd
}

