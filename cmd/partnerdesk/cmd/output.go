package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mattn/go-isatty"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	blockedStyle = cellStyle.Faint(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "250", Dark: "238"})
)

var partnerColumns = []string{"ID", "Partner #", "Co.", "Name", "Industry", "Type", "Status", "File"}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func partnerCells(r registry.PartnerRow) []string {
	file := "-"
	if r.HasAttachment {
		file = "PDF"
	}
	status := r.Status
	if r.Blocked && r.BlockReason != "" {
		status += " (" + r.BlockReason + ")"
	}
	return []string{
		fmt.Sprint(r.ID),
		r.PartnerNumber,
		r.CompanyCode,
		r.Name1,
		r.Industry,
		r.TypeName,
		status,
		file,
	}
}

// writePartnerTable renders rows as a bordered table on terminals and as
// tab-separated values otherwise.
func writePartnerTable(w io.Writer, rows []registry.PartnerRow) {
	if !isTerminal(w) {
		fmt.Fprintln(w, strings.Join(partnerColumns, "\t"))
		for _, r := range rows {
			fmt.Fprintln(w, strings.Join(partnerCells(r), "\t"))
		}
		return
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = partnerCells(r)
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(partnerColumns...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(rows) && rows[row].Blocked:
				return blockedStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, t.String())
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// partnerFields returns the labelled fields of a full partner record.
func partnerFields(r registry.PartnerRow) [][2]string {
	status := r.Status
	if r.Blocked && r.BlockReason != "" {
		status += " (" + r.BlockReason + ")"
	}
	file := "none"
	if r.HasAttachment {
		file = "PDF on file"
	}
	return [][2]string{
		{"Partner #", r.PartnerNumber},
		{"Company", registry.CompanyLabel(r.CompanyCode)},
		{"Name", r.Name1},
		{"Name 2", r.Name2},
		{"Business group", r.BusinessGroup},
		{"Industry", r.Industry},
		{"Type", r.TypeName},
		{"Phone", joinNonEmpty(", ", r.Phone1, r.Phone2)},
		{"Email", r.Email},
		{"Address", r.Address},
		{"With-tax type", r.WithTaxType},
		{"Holding subject", r.HoldingSubject},
		{"Search terms", joinNonEmpty(", ", r.SearchTerm1, r.SearchTerm2)},
		{"Tax ID", r.TaxID},
		{"Tax end date", r.TaxEndDate},
		{"Tax days left", daysLeftText(r.TaxEndDate, r.TaxDaysLeft)},
		{"CR ID", r.CommercialID},
		{"CR end date", r.CREndDate},
		{"CR days left", daysLeftText(r.CREndDate, r.CRDaysLeft)},
		{"VAT number", r.VATNumber},
		{"VAT start", r.VATStartDate},
		{"VAT end", r.VATEndDate},
		{"Class", r.Class},
		{"Status", status},
		{"Attachment", file},
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func daysLeftText(end string, days int) string {
	if end == "" {
		return ""
	}
	if days < 0 {
		return fmt.Sprintf("expired %dd ago", -days)
	}
	return fmt.Sprint(days)
}

// writePartnerDetail prints one record as aligned label/value lines.
func writePartnerDetail(w io.Writer, r registry.PartnerRow) {
	for _, f := range partnerFields(r) {
		value := f[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%-16s %s\n", f[0]+":", value)
	}
}
