// Package listing drives the paginated partner table: the editable filter
// store, the applied filter snapshot, the cursor cache and the fetch cycle
// that keeps them consistent.
//
// A Controller is owned by a single goroutine (the TUI update loop or a CLI
// command). Only Fetch may run elsewhere; it reads nothing but its Request.
package listing

import "github.com/mastera/partnerdesk/internal/registry"

// FilterStore holds the filter values being edited. Editing never fetches
// and never changes what is applied; see Controller.Commit.
type FilterStore struct {
	values registry.FilterSet
}

// Values returns a copy of the current values.
func (s *FilterStore) Values() registry.FilterSet { return s.values }

func (s *FilterStore) Name() string { return s.values.Name }
func (s *FilterStore) TaxID() string { return s.values.TaxID }
func (s *FilterStore) PartnerCode() string { return s.values.PartnerCode }
func (s *FilterStore) Company() string { return s.values.Company }
func (s *FilterStore) Category() string { return s.values.Category }
func (s *FilterStore) BlockedOnly() bool { return s.values.BlockedOnly }
func (s *FilterStore) Type() registry.PartnerType { return s.values.Type }
func (s *FilterStore) SetName(v string) { s.values.Name = v }
func (s *FilterStore) SetTaxID(v string) { s.values.TaxID = v }
func (s *FilterStore) SetPartnerCode(v string) { s.values.PartnerCode = v }
func (s *FilterStore) SetCompany(v string) { s.values.Company = v }
func (s *FilterStore) SetCategory(v string) { s.values.Category = v }
func (s *FilterStore) SetBlockedOnly(v bool) { s.values.BlockedOnly = v }
func (s *FilterStore) SetType(v registry.PartnerType) { s.values.Type = v }

// Set replaces every value at once.
func (s *FilterStore) Set(v registry.FilterSet) { s.values = v }

// Reset clears every field to its default in a single assignment.
func (s *FilterStore) Reset() { s.values = registry.FilterSet{} }
