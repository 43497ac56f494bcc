package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mastera/partnerdesk/internal/attachment"
	"github.com/mastera/partnerdesk/internal/registry"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	// Blocked partners are dimmed
	blockedRowStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Background(bgBase)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}). // Amber for visibility
			Background(bgBase)

	// Expiring registrations in the detail view
	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

// expiryWarningDays is the days-left threshold below which a date is highlighted.
const expiryWarningDays = 30

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.level {
	case levelDetail:
		body = m.detailView()
	default:
		body = m.tableView()
	}

	view := fmt.Sprintf("%s\n%s\n%s", m.headerView(), body, m.footerView())
	if m.modal != modalNone {
		view = m.overlayModal(view)
	}
	return view
}

// headerView renders a two-line header:
// Line 1: partnerdesk [version] - user (role)
// Line 2: breadcrumb | applied filters
func (m Model) headerView() string {
	title := "partnerdesk"
	if m.version != "" && m.version != "dev" {
		title = fmt.Sprintf("partnerdesk [%s]", m.version)
	}
	if m.email != "" {
		title += " - " + m.email
		if m.role != "" {
			title += " (" + m.role + ")"
		}
	}
	line1 := titleBarStyle.Render(padRight(title, m.width-2))

	var breadcrumb string
	switch m.level {
	case levelDetail:
		breadcrumb = "Partner: " + truncateRunes(orDash(m.detailRow.PartnerNumber), 20)
	default:
		breadcrumb = fmt.Sprintf("Partners · page %d", m.ctrl.Page())
	}
	summary := "Filters: " + filterSummary(m.ctrl.Applied())

	breadcrumbStyled := statsStyle.Render(" " + breadcrumb + " ")
	maxSummary := m.width - lipgloss.Width(breadcrumbStyled) - 3
	if maxSummary < 0 {
		maxSummary = 0
	}
	summaryStyled := statsStyle.Render(truncateRunes(summary, maxSummary) + " ")
	gap := m.width - lipgloss.Width(breadcrumbStyled) - lipgloss.Width(summaryStyled)
	if gap < 0 {
		gap = 0
	}
	line2 := breadcrumbStyled + strings.Repeat(" ", gap) + summaryStyled

	return line1 + "\n" + line2
}

// column is one table column.
type column struct {
	title string
	width int
	value func(registry.PartnerRow) string
}

// columns lays out the table for the current width. The two name columns
// absorb whatever space the fixed columns leave.
func (m Model) columns() []column {
	fixed := []column{
		{"Partner #", 10, func(r registry.PartnerRow) string { return r.PartnerNumber }},
		{"Co.", 5, func(r registry.PartnerRow) string { return r.CompanyCode }},
		{"Name", 0, func(r registry.PartnerRow) string { return r.Name1 }},
		{"Name 2", 0, func(r registry.PartnerRow) string { return r.Name2 }},
		{"Industry", 13, func(r registry.PartnerRow) string { return r.Industry }},
		{"Type", 9, func(r registry.PartnerRow) string { return r.TypeName }},
		{"Status", 8, func(r registry.PartnerRow) string { return r.Status }},
		{"File", 4, func(r registry.PartnerRow) string {
			if r.HasAttachment {
				return "PDF"
			}
			return "-"
		}},
	}

	used := 1 // leading space
	for _, c := range fixed {
		used += c.width + 1
	}
	avail := m.width - used
	nameWidth := avail * 3 / 5
	if nameWidth < 8 {
		nameWidth = 8
	}
	name2Width := avail - nameWidth
	if name2Width < 6 {
		name2Width = 6
	}
	fixed[2].width = nameWidth
	fixed[3].width = name2Width
	return fixed
}

func renderColumns(cols []column, cell func(column) string) string {
	var sb strings.Builder
	sb.WriteString(" ")
	for _, c := range cols {
		sb.WriteString(padRight(truncateRunes(cell(c), c.width), c.width))
		sb.WriteString(" ")
	}
	return sb.String()
}

// tableView renders the partner table and the info line beneath it.
func (m Model) tableView() string {
	var sb strings.Builder
	cols := m.columns()

	header := renderColumns(cols, func(c column) string { return c.title })
	sb.WriteString(tableHeaderStyle.Render(padRight(header, m.width)))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	sb.WriteString("\n")

	rows := m.rows()
	lines := 0
	switch {
	case len(rows) == 0 && m.ctrl.Loading():
		sb.WriteString(loadingStyle.Render(padRight(" Loading partners...", m.width)))
		sb.WriteString("\n")
		lines++
	case len(rows) == 0 && m.ctrl.Err() == nil:
		sb.WriteString(normalRowStyle.Render(padRight(" No partners match the applied filters.", m.width)))
		sb.WriteString("\n")
		lines++
	}

	end := m.scrollOffset + m.pageSize
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.scrollOffset; i < end; i++ {
		row := rows[i]
		line := padRight(renderColumns(cols, func(c column) string { return c.value(row) }), m.width)
		style := normalRowStyle
		switch {
		case i == m.cursor:
			style = cursorRowStyle
		case row.Blocked:
			style = blockedRowStyle
		case i%2 == 1:
			style = altRowStyle
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
		lines++
	}

	for ; lines < m.pageSize; lines++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderNotificationLine())
	return sb.String()
}

// detailLines renders the detail record as label/value lines.
func (m Model) detailLines() []string {
	r := m.detailRow
	attach := "No"
	if r.HasAttachment {
		attach = "Yes (PDF)"
	}
	status := orDash(r.Status)
	if r.Blocked && r.BlockReason != "" {
		status += " (" + r.BlockReason + ")"
	}

	type field struct {
		label string
		value string
		warn  bool
	}
	fields := []field{
		{label: "Partner #", value: r.PartnerNumber},
		{label: "Company", value: registry.CompanyLabel(r.CompanyCode)},
		{label: "Name", value: r.Name1},
		{label: "Name 2", value: r.Name2},
		{label: "Business group", value: r.BusinessGroup},
		{label: "Industry", value: r.Industry},
		{label: "Type", value: r.TypeName},
		{label: "Phone 1", value: r.Phone1},
		{label: "Phone 2", value: r.Phone2},
		{label: "Email", value: r.Email},
		{label: "Address", value: r.Address},
		{label: "With-tax type", value: r.WithTaxType},
		{label: "Holding subject", value: r.HoldingSubject},
		{label: "Search term 1", value: r.SearchTerm1},
		{label: "Search term 2", value: r.SearchTerm2},
		{label: "Tax ID", value: r.TaxID},
		{label: "Tax end date", value: r.TaxEndDate},
		{label: "Tax days left", value: formatDaysLeft(r.TaxDaysLeft), warn: r.TaxEndDate != "" && r.TaxDaysLeft < expiryWarningDays},
		{label: "CR ID", value: r.CommercialID},
		{label: "CR end date", value: r.CREndDate},
		{label: "CR days left", value: formatDaysLeft(r.CRDaysLeft), warn: r.CREndDate != "" && r.CRDaysLeft < expiryWarningDays},
		{label: "VAT number", value: r.VATNumber},
		{label: "VAT valid", value: vatValidity(r)},
		{label: "Class", value: r.Class},
		{label: "Status", value: status},
		{label: "Attachment", value: attach},
	}

	const labelWidth = 16
	valueWidth := m.width - labelWidth - 4
	if valueWidth < 10 {
		valueWidth = 10
	}

	var lines []string
	for _, f := range fields {
		label := labelStyle.Render(padRight(f.label, labelWidth))
		for i, part := range wrapText(orDash(f.value), valueWidth) {
			if f.warn {
				part = highlightStyle.Render(part)
			}
			if i == 0 {
				lines = append(lines, " "+label+" "+part)
			} else {
				lines = append(lines, " "+strings.Repeat(" ", labelWidth)+" "+part)
			}
		}
	}
	return lines
}

func vatValidity(r registry.PartnerRow) string {
	switch {
	case r.VATStartDate == "" && r.VATEndDate == "":
		return ""
	case r.VATEndDate == "":
		return "from " + r.VATStartDate
	case r.VATStartDate == "":
		return "until " + r.VATEndDate
	}
	return r.VATStartDate + " to " + r.VATEndDate
}

// detailView renders the scrollable detail record.
func (m Model) detailView() string {
	lines := m.detailLines()
	height := m.detailPageSize()

	start := m.detailScroll
	if start > len(lines) {
		start = len(lines)
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
	}

	var sb strings.Builder
	for _, line := range lines[start:end] {
		sb.WriteString(normalRowStyle.Render(padRight(line, m.width)))
		sb.WriteString("\n")
	}
	for i := end - start; i < height; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderNotificationLine())
	return sb.String()
}

// footerView renders the key hints and position.
func (m Model) footerView() string {
	var keys []string
	var posStr string

	switch m.level {
	case levelList:
		keys = []string{"↑/↓", "Enter detail", "f filter", "t type"}
		if m.ctrl.HasNextPage() {
			keys = append(keys, "n next")
		}
		if m.ctrl.Page() > 1 {
			keys = append(keys, "p prev")
		}
		if k := m.ctrl.KnownPages(); k > 1 {
			keys = append(keys, fmt.Sprintf("1-%d jump", min(k, 9)))
		}
		if m.canUpload() {
			keys = append(keys, "u upload")
		}
		keys = append(keys, "v file", "? help")
		if n := len(m.rows()); n > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.cursor+1, n)
		}
		if !m.ctrl.HasNextPage() && len(m.rows()) > 0 {
			posStr = " last page" + posStr
		}
	case levelDetail:
		keys = []string{"←/→ prev/next", "↑/↓ scroll"}
		if m.canUpload() {
			keys = append(keys, "u upload")
		}
		keys = append(keys, "v file", "Esc back", "q quit")
		if n := len(m.rows()); n > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.detailIndex+1, n)
		}
	}

	keysStr := strings.Join(keys, " │ ")
	gap := m.width - lipgloss.Width(keysStr) - lipgloss.Width(posStr) - 2
	if gap < 0 {
		gap = 0
	}
	return footerStyle.Render(keysStr + strings.Repeat(" ", gap) + posStr)
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// renderInfoLine renders the info line with an optional right-aligned
// loading spinner.
func (m Model) renderInfoLine(content string, loading bool) string {
	// statsStyle has Padding(0, 1) which adds 2 characters
	contentWidth := m.width - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	if content == "" && !loading {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	if loading {
		indicator := m.spinnerIndicator()
		gap := contentWidth - lipgloss.Width(content) - lipgloss.Width(indicator)
		if gap < 1 {
			gap = 1
		}
		content += strings.Repeat(" ", gap) + spinnerStyle.Render(indicator)
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

// renderNotificationLine shows, in order of precedence, a flash message,
// the last page error, or loading progress.
func (m Model) renderNotificationLine() string {
	if m.flashMessage != "" {
		line := " " + m.flashMessage
		if m.loading() {
			indicator := m.spinnerIndicator()
			gap := m.width - lipgloss.Width(line) - lipgloss.Width(indicator)
			if gap < 1 {
				gap = 1
			}
			line += strings.Repeat(" ", gap) + indicator
		}
		return flashStyle.Render(padRight(line, m.width))
	}
	if err := m.ctrl.Err(); err != nil && m.level == levelList {
		return errorStyle.Render(padRight(" Error: "+registry.UserMessage(err)+" (r to retry)", m.width))
	}
	if m.ctrl.Loading() {
		page := m.inflight.Page
		if page == 0 {
			page = 1
		}
		return m.renderInfoLine(fmt.Sprintf("Loading page %d...", page), true)
	}
	return m.renderInfoLine("", m.loading())
}

// rawHelpLines contains the help modal content. The first line is the title.
var rawHelpLines = []string{
	"Keyboard Shortcuts",
	"",
	"Table",
	"  ↑/k, ↓/j    Move cursor up/down",
	"  PgUp/PgDn   Scroll",
	"  Home/End    First/last row",
	"  Enter       Open partner detail",
	"  n/→, p/←    Next/previous page",
	"  1-9         Jump to a page already visited",
	"  r           Reload current page",
	"",
	"Filters",
	"  f or /      Edit filters (Enter applies)",
	"  t           Cycle All/Vendors/Customers",
	"  x           Clear all filters",
	"",
	"Attachments",
	"  u           Upload PDF (create or replace)",
	"  v           Download attachment",
	"",
	"Other",
	"  Esc         Back to table",
	"  q           Quit",
	"",
	"[↑/↓] Scroll  [Any other key] Close",
}

// helpMaxVisible returns the max visible lines for the help modal given terminal height.
func (m Model) helpMaxVisible() int {
	v := m.height - 6
	if v < 1 {
		v = 1
	}
	if v > len(rawHelpLines) {
		v = len(rawHelpLines)
	}
	return v
}

// renderHelpModal renders the help modal content with scrolling support.
func (m Model) renderHelpModal() string {
	maxVisible := m.helpMaxVisible()
	maxScroll := len(rawHelpLines) - maxVisible
	if maxScroll < 0 {
		maxScroll = 0
	}
	scroll := m.helpScroll
	if scroll > maxScroll {
		scroll = maxScroll
	}

	visible := rawHelpLines[scroll : scroll+maxVisible]
	rendered := make([]string, len(visible))
	for i, line := range visible {
		if scroll+i == 0 {
			rendered[i] = modalTitleStyle.Render(line)
		} else {
			rendered[i] = line
		}
	}
	return strings.Join(rendered, "\n")
}

func (m Model) renderUploadPathModal() string {
	var who string
	if m.upload != nil {
		who = orDash(m.upload.row.PartnerNumber)
	}
	return modalTitleStyle.Render("Upload PDF for "+who) + "\n\n" +
		m.pathInput.View() + "\n\n" +
		"[Enter] Continue  [Esc] Cancel"
}

func (m Model) renderUploadConfirmModal() string {
	if m.upload == nil {
		return ""
	}
	title := "Upload File"
	if m.upload.row.HasAttachment {
		title = "Replace File"
	}
	return modalTitleStyle.Render(title) + "\n\n" +
		attachment.Prompt(m.upload.row, m.upload.name) + "\n\n" +
		"[Y] Yes    [N] No"
}

func (m Model) renderResultModal() string {
	return modalTitleStyle.Render(m.modalTitle) + "\n\n" +
		m.modalResult + "\n\n" +
		"Press any key to continue"
}

func (m Model) renderQuitConfirmModal() string {
	return modalTitleStyle.Render("Quit?") + "\n\n" +
		"Are you sure you want to quit?\n\n" +
		"[Y] Yes    [N] No"
}

// overlayModal renders the active modal centered over background.
func (m Model) overlayModal(background string) string {
	var modalContent string

	switch m.modal {
	case modalFilter:
		modalContent = m.filter.view(m.ctrl.Filters())
	case modalUploadPath:
		modalContent = m.renderUploadPathModal()
	case modalUploadConfirm:
		modalContent = m.renderUploadConfirmModal()
	case modalResult:
		modalContent = m.renderResultModal()
	case modalQuitConfirm:
		modalContent = m.renderQuitConfirmModal()
	case modalHelp:
		modalContent = m.renderHelpModal()
	}

	if modalContent == "" {
		return background
	}

	modal := modalStyle.Render(modalContent)
	bgLines := strings.Split(background, "\n")
	modalLines := strings.Split(modal, "\n")

	startLine := (len(bgLines) - len(modalLines)) / 2
	if startLine < 0 {
		startLine = 0
	}
	modalWidth := lipgloss.Width(modal)
	leftPadding := (m.width - modalWidth) / 2
	if leftPadding < 0 {
		leftPadding = 0
	}

	for i, modalLine := range modalLines {
		lineIdx := startLine + i
		if lineIdx >= len(bgLines) {
			break
		}
		bgLine := bgLines[lineIdx]
		bgWidth := lipgloss.Width(bgLine)

		var composite strings.Builder
		if leftPadding > 0 {
			leftBg := truncateToWidth(bgLine, leftPadding)
			composite.WriteString(leftBg)
			if w := lipgloss.Width(leftBg); w < leftPadding {
				composite.WriteString(strings.Repeat(" ", leftPadding-w))
			}
		}
		composite.WriteString(modalLine)
		if rightStart := leftPadding + modalWidth; rightStart < bgWidth {
			composite.WriteString(skipToWidth(bgLine, rightStart))
		}
		bgLines[lineIdx] = composite.String()
	}

	return strings.Join(bgLines, "\n")
}
