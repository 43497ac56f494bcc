package tui

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/registry/registrytest"
	"github.com/muesli/termenv"
)

// ansiStart is the escape sequence prefix found in styled terminal output.
const ansiStart = "\x1b["

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output, restoring the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// pagedBackend serves total partners, registry.PageSize per page. Cursors
// are the offset of the next page's first row.
func pagedBackend(total int) *registrytest.MockBackend {
	all := registrytest.Partners(1, total)
	b := &registrytest.MockBackend{}
	b.ListPartnersFunc = func(_ context.Context, req registry.ListRequest) (*registry.ListPage, error) {
		start := 0
		if !req.Cursor.IsZero() {
			n, err := strconv.Atoi(string(req.Cursor))
			if err != nil {
				return nil, &registry.APIError{Status: 400, Code: "invalid_cursor", Message: "Invalid cursor"}
			}
			start = n
		}
		end := start + registry.PageSize
		if end > len(all) {
			end = len(all)
		}
		page := &registry.ListPage{Items: all[start:end]}
		if end < len(all) {
			page.HasNextPage = true
			page.NextCursor = registry.Cursor(strconv.Itoa(end))
		}
		return page, nil
	}
	return b
}

// newTestModel returns a sized model over backend.
func newTestModel(t *testing.T, backend registry.Backend, opts Options) Model {
	t.Helper()
	m := New(backend, opts)
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 24})
}

// update feeds msg to m and returns the resulting model.
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm
}

// keyMsg builds the tea.KeyMsg for a key name as bubbletea reports it.
func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// press sends keys in order.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = update(t, m, keyMsg(k))
	}
	return m
}

// settle runs the in-flight page request and applies its response.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	if !m.ctrl.Loading() {
		t.Fatal("settle: no page request in flight")
	}
	return update(t, m, m.fetchPage(m.inflight)())
}

// loadFirstPage commits the current filters and applies page 1.
func loadFirstPage(t *testing.T, m Model) Model {
	t.Helper()
	m.inflight = m.ctrl.Commit()
	return settle(t, m)
}
