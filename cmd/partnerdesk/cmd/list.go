package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mastera/partnerdesk/internal/listing"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/spf13/cobra"
)

// filterFlags holds the listing filters given on the command line.
type filterFlags struct {
	name        string
	taxID       string
	partnerCode string
	company     string
	category    string
	blocked     bool
	partnerType string
	page        int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "filter by name (substring)")
	cmd.Flags().StringVar(&f.taxID, "tax-id", "", "filter by tax ID")
	cmd.Flags().StringVar(&f.partnerCode, "partner", "", "filter by partner number")
	cmd.Flags().StringVar(&f.company, "company", "", "filter by company code, e.g. B100")
	cmd.Flags().StringVar(&f.category, "category", "", "filter by industry ("+strings.Join(registry.Industries, ", ")+")")
	cmd.Flags().BoolVar(&f.blocked, "blocked", false, "only blocked partners")
	cmd.Flags().StringVar(&f.partnerType, "type", "all", "partner type: all, vendors or customers")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
}

// filters validates the flags and returns the filter set they describe.
func (f *filterFlags) filters() (registry.FilterSet, error) {
	if f.page < 1 {
		return registry.FilterSet{}, fmt.Errorf("--page must be 1 or greater")
	}
	typ := strings.ToLower(strings.TrimSpace(f.partnerType))
	switch typ {
	case "", "all", "vendors", "customers":
	default:
		return registry.FilterSet{}, fmt.Errorf("--type must be all, vendors or customers, got %q", f.partnerType)
	}
	return registry.FilterSet{
		Name:        strings.TrimSpace(f.name),
		TaxID:       strings.TrimSpace(f.taxID),
		PartnerCode: strings.TrimSpace(f.partnerCode),
		Company:     strings.TrimSpace(f.company),
		Category:    strings.TrimSpace(f.category),
		BlockedOnly: f.blocked,
		Type:        registry.ParsePartnerType(typ),
	}, nil
}

// loadPage applies filters and walks the cursor chain to page. Pages can
// only be reached in order, so every earlier page is fetched on the way.
func loadPage(ctx context.Context, backend registry.Lister, filters registry.FilterSet, page int) (*listing.Controller, error) {
	ctrl := listing.NewController(backend)
	ctrl.Filters().Set(filters)
	if err := ctrl.Load(ctx, ctrl.Commit()); err != nil {
		return nil, backendError(ctx, "list partners", err)
	}
	for ctrl.Page() < page {
		req, err := ctrl.Next()
		if errors.Is(err, listing.ErrPageUnreachable) {
			return nil, fmt.Errorf("page %d does not exist (last page is %d)", page, ctrl.Page())
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("walking cursor chain", "page", req.Page)
		if err := ctrl.Load(ctx, req); err != nil {
			return nil, backendError(ctx, fmt.Sprintf("list partners page %d", req.Page), err)
		}
	}
	return ctrl, nil
}

var (
	listFlags filterFlags
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List partners, one page at a time",
	Long: `List partner records matching the given filters, ten per page.

Pages are cursor based: reaching page N fetches pages 1 through N in order.

Examples:
  partnerdesk list
  partnerdesk list --type vendors --company B100
  partnerdesk list --blocked --page 2
  partnerdesk list --name steel --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := listFlags.filters()
		if err != nil {
			return err
		}
		_, client, err := requireSession()
		if err != nil {
			return err
		}

		ctrl, err := loadPage(cmd.Context(), client, filters, listFlags.page)
		if err != nil {
			return err
		}
		rows := ctrl.Result().Rows
		out := cmd.OutOrStdout()

		if listJSON {
			return writeJSON(out, struct {
				Page        int                   `json:"page"`
				HasNextPage bool                  `json:"hasNextPage"`
				Items       []registry.PartnerRow `json:"items"`
			}{ctrl.Page(), ctrl.HasNextPage(), rows})
		}

		if len(rows) == 0 {
			fmt.Fprintln(out, "No partners match the applied filters.")
			return nil
		}
		writePartnerTable(out, rows)
		if isTerminal(out) {
			more := "last page"
			if ctrl.HasNextPage() {
				more = fmt.Sprintf("more with --page %d", ctrl.Page()+1)
			}
			fmt.Fprintf(out, "Page %d, %d partner(s), %s\n", ctrl.Page(), len(rows), more)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listFlags.register(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}
