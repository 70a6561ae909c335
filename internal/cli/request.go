package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdidris/rfpd/internal/model"
)

// requestCmd groups the request lifecycle commands
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Create, inspect and send procurement requests",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create <free-text ask>",
	Short: "Create a request from a free-text ask",
	Long: `Create structures the buyer's free-text ask into a titled request
with budget, deadline and line items, and stores it as a draft.

Example:
  rfpd request create "Need 50 laptops under \$60k, delivery in 3 weeks"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequestCreate,
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all requests, newest first",
	RunE:  runRequestList,
}

var requestShowCmd = &cobra.Command{
	Use:   "show <request-id>",
	Short: "Show a request with its proposals",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestShow,
}

var sendVendorIDs []string

var requestSendCmd = &cobra.Command{
	Use:   "send <request-id>",
	Short: "Send invitation emails to vendors",
	Long: `Send emails an invitation to each vendor, with the request's
reference token in the subject line, and marks the request Sent.

Example:
  rfpd request send a1b2c3d4e5f6a1b2c3d4e5f6 --vendor <vendor-id> --vendor <vendor-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runRequestSend,
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(requestCreateCmd)
	requestCmd.AddCommand(requestListCmd)
	requestCmd.AddCommand(requestShowCmd)
	requestCmd.AddCommand(requestSendCmd)

	requestSendCmd.Flags().StringArrayVar(&sendVendorIDs, "vendor", nil, "vendor id to invite (repeatable)")
	_ = requestSendCmd.MarkFlagRequired("vendor")
}

func runRequestCreate(cmd *cobra.Command, args []string) error {
	userText := strings.Join(args, " ")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	terms, err := a.assistant.StructureRequest(ctx, userText)
	if err != nil {
		return fmt.Errorf("structure request: %w", err)
	}

	req := &model.Request{
		ID:          model.NewRequestID(),
		UserRequest: userText,
		Terms:       terms,
		Status:      model.StatusDraft,
	}
	if err := a.store.CreateRequest(ctx, req); err != nil {
		return fmt.Errorf("store request: %w", err)
	}

	fmt.Printf("Created request %s\n", req.ID)
	fmt.Printf("  Title:    %s\n", terms.Title)
	fmt.Printf("  Budget:   %.2f %s\n", terms.Budget, terms.Currency)
	fmt.Printf("  Deadline: %s\n", terms.Deadline)
	for _, item := range terms.Items {
		fmt.Printf("  Item:     %dx %s", item.Quantity, item.Name)
		if item.Specs != "" {
			fmt.Printf(" (%s)", item.Specs)
		}
		fmt.Println()
	}
	return nil
}

func runRequestList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	requests, err := a.store.ListRequests(context.Background())
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		fmt.Println("No requests yet. Create one with 'rfpd request create'.")
		return nil
	}

	for _, req := range requests {
		fmt.Printf("%s  %-6s  %s\n", req.ID, req.Status, req.Terms.Title)
	}
	return nil
}

func runRequestShow(cmd *cobra.Command, args []string) error {
	id := model.RequestID(args[0])
	if !id.IsValid() {
		return fmt.Errorf("invalid request id: %s", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := context.Background()
	req, err := a.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	records, err := a.store.ProposalsByRequest(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Request %s (%s)\n", req.ID, req.Status)
	fmt.Printf("  Ask:      %s\n", req.UserRequest)
	fmt.Printf("  Title:    %s\n", req.Terms.Title)
	fmt.Printf("  Budget:   %.2f %s\n", req.Terms.Budget, req.Terms.Currency)
	fmt.Printf("  Deadline: %s\n", req.Terms.Deadline)
	fmt.Printf("  Invited:  %d vendor(s)\n", len(req.VendorIDs))

	fmt.Printf("\nProposals (%d):\n", len(records))
	for _, rec := range records {
		fmt.Printf("  %s: %.2f, delivery %s, warranty %s\n",
			rec.Vendor.Name, rec.Proposal.Terms.Cost,
			rec.Proposal.Terms.DeliveryTime, rec.Proposal.Terms.Warranty)
	}

	if req.Analysis != nil {
		fmt.Println()
		printAnalysis(req.Analysis, req.AnalyzedCount)
		if req.AnalyzedCount != len(records) {
			fmt.Printf("\nNote: analysis reflects %d proposal(s), %d stored now. Re-run 'rfpd analyze %s'.\n",
				req.AnalyzedCount, len(records), req.ID)
		}
	}
	return nil
}

func runRequestSend(cmd *cobra.Command, args []string) error {
	id := model.RequestID(args[0])
	if !id.IsValid() {
		return fmt.Errorf("invalid request id: %s", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if a.mailer == nil {
		return fmt.Errorf("outbound mail is not configured (set smtp.host and smtp.from)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	req, err := a.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}

	ids := make([]model.VendorID, len(sendVendorIDs))
	for i, raw := range sendVendorIDs {
		ids[i] = model.VendorID(raw)
	}
	vendors, err := a.vendors.ByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(vendors) == 0 {
		return fmt.Errorf("no known vendors among the given ids")
	}

	if err := a.mailer.Invite(ctx, req, vendors); err != nil {
		return fmt.Errorf("send invitations: %w", err)
	}

	invited := make([]model.VendorID, len(vendors))
	for i, v := range vendors {
		invited[i] = v.ID
	}
	if err := a.store.MarkSent(ctx, id, invited); err != nil {
		return err
	}

	fmt.Printf("Invited %d vendor(s) to request %s:\n", len(vendors), id)
	for _, v := range vendors {
		fmt.Printf("  %s <%s>\n", v.Name, v.Email)
	}
	return nil
}
