package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdidris/rfpd/internal/model"
)

var analyzeTimeout time.Duration

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <request-id>",
	Short: "Compare a request's proposals into a recommendation",
	Long: `Analyze loads every proposal stored for the request, compares them
against the buyer's requirements, and stores a ranked recommendation
on the request.

Example:
  rfpd analyze a1b2c3d4e5f6a1b2c3d4e5f6`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	id := model.RequestID(args[0])
	if !id.IsValid() {
		return fmt.Errorf("invalid request id: %s", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	analysis, count, err := a.analyzer.Analyze(ctx, id)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printAnalysis(analysis, count)
	return nil
}

func printAnalysis(analysis *model.Analysis, count int) {
	fmt.Printf("Analyzed %d proposal(s)\n\n", count)
	fmt.Printf("Recommended vendor: %s\n", analysis.RecommendedVendorID)
	fmt.Printf("Reasoning: %s\n\n", analysis.Reasoning)

	for i, r := range analysis.Rankings {
		fmt.Printf("%d. %s (score %.0f/10)\n", i+1, r.VendorName, r.Score)
		fmt.Printf("   Cost: %.2f  Delivery: %s\n", r.Cost, r.DeliveryTime)
		if r.Note != "" {
			fmt.Printf("   %s\n", r.Note)
		}
	}
}
