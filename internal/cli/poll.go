package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var pollTimeout time.Duration

// pollCmd represents the poll command
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the mailbox once and ingest vendor replies",
	Long: `Poll connects to the configured IMAP mailbox, finds messages whose
subject carries a reference token, and ingests each one: the token is
matched to a request, the sender to a known vendor, duplicates are
rejected, and the surviving replies are structured and stored as
proposals.

Example:
  rfpd poll
  rfpd poll --timeout 2m`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", time.Minute, "overall poll timeout")
}

func runPoll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	summary, err := a.ingestor.Run(ctx)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	fmt.Printf("Processed %d message(s): %d accepted, %d skipped\n",
		summary.Processed, summary.Accepted, summary.Skipped)

	for _, item := range summary.Items {
		if item.Accepted {
			fmt.Printf("  + %s -> %s\n", item.From, item.RequestID)
			continue
		}
		fmt.Printf("  - %s: %s\n", item.From, item.Reason)
		if verbose && item.Err != nil {
			fmt.Fprintf(os.Stderr, "    %v\n", item.Err)
		}
	}
	return nil
}
