package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mastera/partnerdesk/internal/listing"
	"github.com/mastera/partnerdesk/internal/registry"
)

// filterField identifies one control in the filter form.
type filterField int

const (
	fieldName filterField = iota
	fieldTaxID
	fieldPartnerCode
	fieldCompany
	fieldCategory
	fieldBlocked
	fieldType
	filterFieldCount
)

var filterLabels = [filterFieldCount]string{
	"Name",
	"Tax ID",
	"Partner #",
	"Company",
	"Category",
	"Blocked only",
	"Type",
}

// filterForm edits the controller's filter store. Every change is written
// to the store immediately; nothing is applied until the form is submitted.
type filterForm struct {
	inputs [3]textinput.Model // name, tax id, partner code
	focus  filterField
}

func newFilterForm() filterForm {
	var f filterForm
	placeholders := [3]string{"name contains", "tax id contains", "partner number"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 100
		ti.Width = 30
		ti.Prompt = ""
		f.inputs[i] = ti
	}
	return f
}

// load copies the store's values into the text inputs.
func (f *filterForm) load(s *listing.FilterStore) {
	f.inputs[fieldName].SetValue(s.Name())
	f.inputs[fieldTaxID].SetValue(s.TaxID())
	f.inputs[fieldPartnerCode].SetValue(s.PartnerCode())
}

// setFocus moves focus to field, focusing its text input when it has one.
func (f *filterForm) setFocus(field filterField) tea.Cmd {
	f.focus = (field + filterFieldCount) % filterFieldCount
	var cmd tea.Cmd
	for i := range f.inputs {
		if filterField(i) == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

// blur removes focus from every text input.
func (f *filterForm) blur() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

// isText reports whether the focused control is a text input.
func (f filterForm) isText() bool {
	return f.focus <= fieldPartnerCode
}

// updateText passes msg to the focused text input and writes the new value
// to the store.
func (f *filterForm) updateText(msg tea.Msg, s *listing.FilterStore) tea.Cmd {
	if !f.isText() {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	v := f.inputs[f.focus].Value()
	switch f.focus {
	case fieldName:
		s.SetName(v)
	case fieldTaxID:
		s.SetTaxID(v)
	case fieldPartnerCode:
		s.SetPartnerCode(v)
	}
	return cmd
}

// cycle changes the focused selector by delta.
func (f *filterForm) cycle(delta int, s *listing.FilterStore) {
	switch f.focus {
	case fieldCompany:
		s.SetCompany(cycleOption(registry.Companies, s.Company(), delta))
	case fieldCategory:
		s.SetCategory(cycleOption(registry.Industries, s.Category(), delta))
	case fieldBlocked:
		s.SetBlockedOnly(!s.BlockedOnly())
	case fieldType:
		t := s.Type()
		if delta < 0 {
			t = (t + 2) % 3
		} else {
			t = t.Next()
		}
		s.SetType(t)
	}
}

// cycleOption steps through "" followed by options. A current value not in
// options is treated as "".
func cycleOption(options []string, current string, delta int) string {
	idx := 0
	for i, o := range options {
		if o == current || registry.CompanyCodeOf(o) == current {
			idx = i + 1
			break
		}
	}
	n := len(options) + 1
	idx = ((idx+delta)%n + n) % n
	if idx == 0 {
		return ""
	}
	return options[idx-1]
}

// view renders the form body.
func (f filterForm) view(s *listing.FilterStore) string {
	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render("Filter Partners"))
	sb.WriteString("\n\n")
	for field := filterField(0); field < filterFieldCount; field++ {
		marker := " "
		if field == f.focus {
			marker = "▶"
		}
		var value string
		switch field {
		case fieldName, fieldTaxID, fieldPartnerCode:
			value = f.inputs[field].View()
		case fieldCompany:
			value = selectorText(s.Company(), "Any company")
		case fieldCategory:
			value = selectorText(s.Category(), "Any category")
		case fieldBlocked:
			value = "☐"
			if s.BlockedOnly() {
				value = "☑"
			}
		case fieldType:
			value = "‹ " + s.Type().String() + " ›"
		}
		sb.WriteString(fmt.Sprintf("%s %-13s %s\n", marker, filterLabels[field], value))
	}
	sb.WriteString("\n[Tab/↑↓] Field  [←/→/Space] Change  [Ctrl+R] Reset\n")
	sb.WriteString("[Enter] Search  [Esc] Close")
	return sb.String()
}

func selectorText(v, empty string) string {
	if v == "" {
		return "‹ " + empty + " ›"
	}
	return "‹ " + truncateRunes(v, 30) + " ›"
}

// filterSummary describes an applied filter set for the header.
func filterSummary(f registry.FilterSet) string {
	if f.IsZero() {
		return "no filters"
	}
	var parts []string
	if f.Name != "" {
		parts = append(parts, "name~"+f.Name)
	}
	if f.TaxID != "" {
		parts = append(parts, "tax~"+f.TaxID)
	}
	if f.PartnerCode != "" {
		parts = append(parts, "partner~"+f.PartnerCode)
	}
	if f.Company != "" {
		parts = append(parts, "company "+registry.CompanyCodeOf(f.Company))
	}
	if f.Category != "" {
		parts = append(parts, f.Category)
	}
	if f.BlockedOnly {
		parts = append(parts, "blocked")
	}
	if f.Type != registry.TypeAll {
		parts = append(parts, f.Type.String())
	}
	return strings.Join(parts, ", ")
}
