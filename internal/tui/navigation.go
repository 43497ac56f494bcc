package tui

import tea "github.com/charmbracelet/bubbletea"

// calculateScrollOffset computes the new scroll offset to keep cursor visible within pageSize.
func calculateScrollOffset(cursor, currentOffset, pageSize int) int {
	if cursor < currentOffset {
		return cursor
	}
	if cursor >= currentOffset+pageSize {
		return cursor - pageSize + 1
	}
	return currentOffset
}

func (m *Model) ensureCursorVisible() {
	m.scrollOffset = calculateScrollOffset(m.cursor, m.scrollOffset, m.pageSize)
}

// navigateList moves the table cursor. It reports whether key was a
// navigation key.
func (m *Model) navigateList(key string, itemCount int) bool {
	changed := false

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			changed = true
		}
	case "down", "j":
		if m.cursor < itemCount-1 {
			m.cursor++
			changed = true
		}
	case "pgup", "ctrl+u":
		m.cursor -= m.pageSize
		if m.cursor < 0 {
			m.cursor = 0
		}
		changed = true
	case "pgdown", "ctrl+d":
		m.cursor += m.pageSize
		if m.cursor >= itemCount {
			m.cursor = itemCount - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		changed = true
	case "home", "g":
		m.cursor = 0
		m.scrollOffset = 0
		return true
	case "end", "G":
		m.cursor = itemCount - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
		changed = true
	default:
		return false
	}

	if changed {
		m.ensureCursorVisible()
	}
	return true
}

// changeDetailRow moves the detail view to another row of the live page by
// delta. It does not cross page boundaries.
func (m Model) changeDetailRow(delta int) (tea.Model, tea.Cmd) {
	rows := m.rows()
	if len(rows) == 0 {
		return m.showFlash("No partners loaded")
	}
	if m.detailIndex >= len(rows) {
		m.detailIndex = len(rows) - 1
	}

	idx := m.detailIndex + delta
	if idx < 0 {
		return m.showFlash("At first partner on this page")
	}
	if idx >= len(rows) {
		return m.showFlash("At last partner on this page")
	}

	m.detailIndex = idx
	m.cursor = idx
	m.ensureCursorVisible()
	return m.showDetail(rows[idx])
}

// detailPageSize returns the number of body lines in the detail view.
func (m Model) detailPageSize() int {
	return m.pageSize + 2
}

// clampDetailScroll ensures detailScroll stays within valid bounds.
func (m *Model) clampDetailScroll() {
	maxScroll := len(m.detailLines()) - m.detailPageSize()
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.detailScroll > maxScroll {
		m.detailScroll = maxScroll
	}
	if m.detailScroll < 0 {
		m.detailScroll = 0
	}
}
