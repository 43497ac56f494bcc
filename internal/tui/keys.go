package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mastera/partnerdesk/internal/listing"
	"github.com/mastera/partnerdesk/internal/registry"
)

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalFilter:
		return m.handleFilterKeys(msg)
	case modalUploadPath:
		return m.handleUploadPathKeys(msg)
	case modalUploadConfirm:
		return m.handleUploadConfirmKeys(msg)
	case modalQuitConfirm:
		return m.handleQuitConfirmKeys(msg)
	case modalHelp:
		return m.handleHelpKeys(msg)
	case modalResult:
		m.modal = modalNone
		m.modalResult = ""
		return m, nil
	}

	if m.level == levelDetail {
		return m.handleDetailKeys(msg)
	}
	return m.handleListKeys(msg)
}

// handleGlobalKeys handles keys common to all views (quit, help).
// Returns (model, cmd, true) if the key was handled, or (model, nil, false) otherwise.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		m.modal = modalQuitConfirm
		return m, nil, true
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true
	case "?":
		m.modal = modalHelp
		m.helpScroll = 0
		return m, nil, true
	}
	return m, nil, false
}

// handleListKeys handles keys in the partner table.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	if m.navigateList(msg.String(), len(m.rows())) {
		return m, nil
	}

	switch key := msg.String(); key {
	case "enter":
		return m.openDetail()

	case "n", "right", "l":
		return m.changePage(m.ctrl.Next, "Already on the last page")

	case "p", "left", "h":
		return m.changePage(m.ctrl.Prev, "Already on the first page")

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := int(key[0] - '0')
		goTo := func() (listing.Request, error) { return m.ctrl.GoToPage(n) }
		return m.changePage(goTo, fmt.Sprintf("Page %d not reached yet", n))

	case "r":
		if m.ctrl.Loading() {
			return m, nil
		}
		return m.refresh()

	case "f", "/":
		m.modal = modalFilter
		m.filter.load(m.ctrl.Filters())
		return m, m.filter.setFocus(fieldName)

	case "t":
		m.ctrl.Filters().SetType(m.ctrl.Filters().Type().Next())
		return m.issue(m.ctrl.Commit())

	case "x":
		m.ctrl.Filters().Reset()
		return m.issue(m.ctrl.Commit())

	case "u":
		if row, ok := m.selectedRow(); ok {
			return m.beginUpload(row)
		}
		return m, nil

	case "v":
		if row, ok := m.selectedRow(); ok {
			return m.viewFile(row)
		}
		return m, nil
	}

	return m, nil
}

// changePage issues the request built by next. Page changes are ignored
// while a page is loading; an unreachable page only flashes notice.
func (m Model) changePage(next func() (listing.Request, error), notice string) (tea.Model, tea.Cmd) {
	if m.ctrl.Loading() {
		return m, nil
	}
	req, err := next()
	if errors.Is(err, listing.ErrPageUnreachable) {
		return m.showFlash(notice)
	}
	if err != nil {
		return m.showFlash(err.Error())
	}
	return m.issue(req)
}

// openDetail shows the cursor row and loads its full record.
func (m Model) openDetail() (tea.Model, tea.Cmd) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return m, nil
	}
	m.level = levelDetail
	m.detailIndex = m.cursor
	return m.showDetail(rows[m.cursor])
}

// showDetail displays row and refreshes it from the backend.
func (m Model) showDetail(row registry.PartnerRow) (tea.Model, tea.Cmd) {
	m.detailRow = row
	m.detailScroll = 0
	m.detailRequestID++
	m.detailLoading = true
	spin := m.startSpinner()
	return m, tea.Batch(spin, m.loadDetail(row.ID))
}

// handleDetailKeys handles keys in the detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	switch msg.String() {
	case "esc", "backspace", "enter":
		m.level = levelList
		m.detailLoading = false
		m.detailRequestID++
		return m, nil

	case "up", "k":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
		return m, nil

	case "down", "j":
		m.detailScroll++
		m.clampDetailScroll()
		return m, nil

	case "left", "h":
		return m.changeDetailRow(-1)

	case "right", "l":
		return m.changeDetailRow(1)

	case "u":
		return m.beginUpload(m.detailRow)

	case "v":
		return m.viewFile(m.detailRow)
	}
	return m, nil
}

// handleFilterKeys handles keys in the filter form.
func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := m.ctrl.Filters()
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.filter.blur()
		return m, nil

	case "enter":
		m.modal = modalNone
		m.filter.blur()
		m.level = levelList
		return m.issue(m.ctrl.Commit())

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "down":
		return m, m.filter.setFocus(m.filter.focus + 1)

	case "shift+tab", "up":
		return m, m.filter.setFocus(m.filter.focus - 1)

	case "ctrl+r":
		store.Reset()
		m.filter.load(store)
		return m, nil

	case "left", "right", " ":
		if !m.filter.isText() {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			m.filter.cycle(delta, store)
			return m, nil
		}
	}

	return m, m.filter.updateText(msg, store)
}

// handleUploadPathKeys handles keys in the file path prompt.
func (m Model) handleUploadPathKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.upload = nil
		m.pathInput.Blur()
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		return m.stageUpload(path)
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

// handleUploadConfirmKeys handles the upload confirmation.
func (m Model) handleUploadConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return m.confirmUpload()
	case "n", "N", "esc":
		m.modal = modalNone
		m.upload = nil
		return m.showFlash("Upload cancelled")
	}
	return m, nil
}

// handleQuitConfirmKeys handles the quit confirmation.
func (m Model) handleQuitConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.quitting = true
		return m, tea.Quit
	case "n", "N", "esc", "q":
		m.modal = modalNone
	}
	return m, nil
}

// handleHelpKeys scrolls the help modal; any other key closes it.
func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxScroll := len(rawHelpLines) - m.helpMaxVisible()
	if maxScroll < 0 {
		maxScroll = 0
	}
	switch msg.String() {
	case "up", "k":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	case "down", "j":
		if m.helpScroll < maxScroll {
			m.helpScroll++
		}
	default:
		m.modal = modalNone
		m.helpScroll = 0
	}
	return m, nil
}
