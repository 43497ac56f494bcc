package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/rotisserie/eris"
)

// DateLayout is the format of every date column.
const DateLayout = "2006-01-02"

// Partner is a stored partner record. Empty date strings are stored as NULL.
type Partner struct {
	ID             int64
	PartnerNumber  string
	CompanyCode    string
	Name1          string
	Name2          string
	BusinessGroup  string
	Industry       string
	TypeName       string
	Phone1         string
	Phone2         string
	Email          string
	Address        string
	WithTaxType    string
	HoldingSubject string
	SearchTerm1    string
	SearchTerm2    string
	TaxID          string
	TaxEndDate     string
	CommercialID   string
	CREndDate      string
	VATNumber      string
	VATStartDate   string
	VATEndDate     string
	Class          string
	Status         string
	BlockReason    string
}

const partnerColumns = `
	p.id, p.partner_number, p.company_code, p.name1, p.name2, p.business_group,
	p.industry, p.type_name, p.phone1, p.phone2, p.email, p.address,
	p.with_tax_type, p.holding_subject, p.search_term1, p.search_term2,
	p.tax_id, COALESCE(p.tax_end_date, ''), p.commercial_id,
	COALESCE(p.cr_end_date, ''), p.vat_number, COALESCE(p.vat_start_date, ''),
	COALESCE(p.vat_end_date, ''), p.class, p.status, p.block_reason,
	EXISTS (SELECT 1 FROM partner_files f WHERE f.partner_id = p.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartner(sc rowScanner) (Partner, bool, error) {
	var p Partner
	var hasFile bool
	err := sc.Scan(
		&p.ID, &p.PartnerNumber, &p.CompanyCode, &p.Name1, &p.Name2, &p.BusinessGroup,
		&p.Industry, &p.TypeName, &p.Phone1, &p.Phone2, &p.Email, &p.Address,
		&p.WithTaxType, &p.HoldingSubject, &p.SearchTerm1, &p.SearchTerm2,
		&p.TaxID, &p.TaxEndDate, &p.CommercialID,
		&p.CREndDate, &p.VATNumber, &p.VATStartDate,
		&p.VATEndDate, &p.Class, &p.Status, &p.BlockReason,
		&hasFile,
	)
	return p, hasFile, err
}

// InsertPartner stores p and returns its id. A zero p.ID lets SQLite assign
// one. A duplicate partner number returns ErrConflict.
func (s *Store) InsertPartner(ctx context.Context, p Partner) (int64, error) {
	if p.Status == "" {
		p.Status = registry.StatusActive
	}
	var id any
	if p.ID != 0 {
		id = p.ID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO partners (
			id, partner_number, company_code, name1, name2, business_group,
			industry, type_name, phone1, phone2, email, address,
			with_tax_type, holding_subject, search_term1, search_term2,
			tax_id, tax_end_date, commercial_id, cr_end_date, vat_number,
			vat_start_date, vat_end_date, class, status, block_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.PartnerNumber, p.CompanyCode, p.Name1, p.Name2, p.BusinessGroup,
		p.Industry, p.TypeName, p.Phone1, p.Phone2, p.Email, p.Address,
		p.WithTaxType, p.HoldingSubject, p.SearchTerm1, p.SearchTerm2,
		p.TaxID, nullDate(p.TaxEndDate), p.CommercialID, nullDate(p.CREndDate), p.VATNumber,
		nullDate(p.VATStartDate), nullDate(p.VATEndDate), p.Class, p.Status, p.BlockReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, eris.Wrapf(ErrConflict, "partner %s", p.PartnerNumber)
		}
		return 0, eris.Wrap(err, "insert partner")
	}
	return res.LastInsertId()
}

// CountPartners returns the number of stored partners.
func (s *Store) CountPartners(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM partners`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "count partners")
	}
	return n, nil
}

// GetPartner returns one partner in wire form, or ErrNotFound.
func (s *Store) GetPartner(ctx context.Context, id int64) (*registry.RawPartner, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners p WHERE p.id = ?`, id)
	p, hasFile, err := scanPartner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "partner %d", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "get partner")
	}
	raw := s.toRaw(p, hasFile)
	return &raw, nil
}

// ListPartners returns up to limit partners matching req.Filters, in
// ascending id order, after req.Cursor. The page carries a next cursor only
// when more rows exist.
func (s *Store) ListPartners(ctx context.Context, req registry.ListRequest, limit int) (*registry.ListPage, error) {
	if limit < 1 {
		limit = registry.PageSize
	}
	after, err := DecodeCursor(string(req.Cursor))
	if err != nil {
		return nil, err
	}

	where, args := filterClause(req.Filters)
	where = append(where, "p.id > ?")
	args = append(args, after, limit+1)

	query := `SELECT ` + partnerColumns + ` FROM partners p WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY p.id ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "list partners")
	}
	defer rows.Close()

	page := &registry.ListPage{Items: []registry.RawPartner{}}
	for rows.Next() {
		p, hasFile, err := scanPartner(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan partner")
		}
		page.Items = append(page.Items, s.toRaw(p, hasFile))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate partners")
	}

	// One extra row was fetched to detect a following page.
	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.HasNextPage = true
		page.NextCursor = registry.Cursor(EncodeCursor(page.Items[limit-1].ID))
	}
	return page, nil
}

// filterClause builds the WHERE conditions for a filter set. Text filters
// match substrings, the name filter also searching both search terms;
// company and industry match exactly.
func filterClause(f registry.FilterSet) ([]string, []any) {
	var where []string
	var args []any

	if f.Name != "" {
		where = append(where, `(p.name1 LIKE ? ESCAPE '\' OR p.name2 LIKE ? ESCAPE '\'
			OR p.search_term1 LIKE ? ESCAPE '\' OR p.search_term2 LIKE ? ESCAPE '\')`)
		pat := containsPattern(f.Name)
		args = append(args, pat, pat, pat, pat)
	}
	if f.TaxID != "" {
		where = append(where, `p.tax_id LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(f.TaxID))
	}
	if f.PartnerCode != "" {
		where = append(where, `p.partner_number LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(f.PartnerCode))
	}
	if code := registry.CompanyCodeOf(f.Company); code != "" {
		where = append(where, "p.company_code = ?")
		args = append(args, code)
	}
	if f.Category != "" {
		where = append(where, "p.industry = ?")
		args = append(args, f.Category)
	}
	if f.BlockedOnly {
		where = append(where, "p.status <> ?")
		args = append(args, registry.StatusActive)
	}
	switch f.Type {
	case registry.TypeVendors:
		where = append(where, `p.type_name LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(registry.TypeNameVendor)+"%")
	case registry.TypeCustomers:
		where = append(where, `p.type_name LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(registry.TypeNameCustomer)+"%")
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// toRaw converts a stored partner into the wire shape, computing the day
// counters against the store clock.
func (s *Store) toRaw(p Partner, hasFile bool) registry.RawPartner {
	today := s.now()
	return registry.RawPartner{
		ID:             p.ID,
		PartnerNumber:  &p.PartnerNumber,
		CompanyCode:    &p.CompanyCode,
		Name1:          &p.Name1,
		Name2:          &p.Name2,
		BusinessGroup:  &p.BusinessGroup,
		Industry:       &p.Industry,
		TypeName:       &p.TypeName,
		Phone1:         &p.Phone1,
		Phone2:         &p.Phone2,
		Email:          &p.Email,
		Address:        &p.Address,
		WithTaxType:    &p.WithTaxType,
		HoldingSubject: &p.HoldingSubject,
		SearchTerm1:    &p.SearchTerm1,
		SearchTerm2:    &p.SearchTerm2,
		TaxID:          &p.TaxID,
		TaxEndDate:     optional(p.TaxEndDate),
		TaxDaysLeft:    DaysLeft(p.TaxEndDate, today),
		CommercialID:   &p.CommercialID,
		CREndDate:      optional(p.CREndDate),
		CRDaysLeft:     DaysLeft(p.CREndDate, today),
		VATNumber:      &p.VATNumber,
		VATStartDate:   optional(p.VATStartDate),
		VATEndDate:     optional(p.VATEndDate),
		Class:          &p.Class,
		Status:         &p.Status,
		BlockReason:    &p.BlockReason,
		HasFile:        &hasFile,
	}
}

// DaysLeft returns the whole days from today until the end date, negative
// once the date has passed. It returns nil for an empty or malformed date.
func DaysLeft(end string, today time.Time) *int {
	if end == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, end, today.Location())
	if err != nil {
		return nil
	}
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	days := int(math.Round(t.Sub(start).Hours() / 24))
	return &days
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullDate(s string) any {
	if s == "" {
		return nil
	}
	return s
}
