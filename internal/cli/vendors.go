package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mdidris/rfpd/internal/model"
)

// vendorsCmd groups the vendor directory commands
var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Manage the vendor directory",
}

var vendorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all vendors",
	RunE:  runVendorsList,
}

var (
	vendorName     string
	vendorEmail    string
	vendorCategory string
)

var vendorsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a vendor to the directory",
	Long: `Add registers a vendor. Inbound replies are only attributed to
registered addresses, so a vendor must be added before its proposals
can be ingested.

Example:
  rfpd vendors add --name "Tech Corp" --email sales@techcorp.example --category Hardware`,
	RunE: runVendorsAdd,
}

var vendorsSeedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load vendors from a YAML file",
	Long: `Seed reads a YAML list of vendors and adds each one. Entries whose
email already exists are reported and skipped.

File format:
  - name: Tech Corp
    email: sales@techcorp.example
    category: Hardware
  - name: Budget Inc
    email: quotes@budget.example`,
	Args: cobra.ExactArgs(1),
	RunE: runVendorsSeed,
}

func init() {
	rootCmd.AddCommand(vendorsCmd)
	vendorsCmd.AddCommand(vendorsListCmd)
	vendorsCmd.AddCommand(vendorsAddCmd)
	vendorsCmd.AddCommand(vendorsSeedCmd)

	vendorsAddCmd.Flags().StringVar(&vendorName, "name", "", "vendor name")
	vendorsAddCmd.Flags().StringVar(&vendorEmail, "email", "", "vendor contact address")
	vendorsAddCmd.Flags().StringVar(&vendorCategory, "category", "", "vendor category")
	_ = vendorsAddCmd.MarkFlagRequired("name")
	_ = vendorsAddCmd.MarkFlagRequired("email")
}

func runVendorsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	vendors, err := a.vendors.List(context.Background())
	if err != nil {
		return err
	}
	if len(vendors) == 0 {
		fmt.Println("No vendors yet. Add one with 'rfpd vendors add'.")
		return nil
	}

	for _, v := range vendors {
		fmt.Printf("%s  %-20s  %-30s  %s\n", v.ID, v.Name, v.Email, v.Category)
	}
	return nil
}

func runVendorsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	v := &model.Vendor{Name: vendorName, Email: vendorEmail, Category: vendorCategory}
	if err := a.vendors.Add(context.Background(), v); err != nil {
		return fmt.Errorf("add vendor: %w", err)
	}

	fmt.Printf("Added vendor %s (%s <%s>)\n", v.ID, v.Name, v.Email)
	return nil
}

// seedEntry is one vendor in a seed file.
type seedEntry struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Category string `yaml:"category"`
}

func runVendorsSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("seed file %s contains no vendors", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := context.Background()
	added := 0
	for _, entry := range entries {
		if entry.Name == "" || entry.Email == "" {
			fmt.Fprintf(os.Stderr, "Skipping entry with missing name or email: %+v\n", entry)
			continue
		}
		v := &model.Vendor{Name: entry.Name, Email: entry.Email, Category: entry.Category}
		if err := a.vendors.Add(ctx, v); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", entry.Email, err)
			continue
		}
		added++
		if verbose {
			fmt.Printf("  + %s <%s>\n", v.Name, v.Email)
		}
	}

	fmt.Printf("Seeded %d of %d vendor(s)\n", added, len(entries))
	return nil
}
