// Package registry defines the partner registry data model shared by the
// backend client, the listing controller and the console views.
package registry

// PartnerType selects which kind of partner a listing includes.
type PartnerType int

const (
	TypeAll PartnerType = iota
	TypeVendors
	TypeCustomers
)

// String returns the label shown in filter controls.
func (t PartnerType) String() string {
	switch t {
	case TypeVendors:
		return "Vendors"
	case TypeCustomers:
		return "Customers"
	default:
		return "All"
	}
}

// ParsePartnerType maps a UI label or CLI flag value back to a PartnerType.
// Unknown values select TypeAll.
func ParsePartnerType(s string) PartnerType {
	switch s {
	case "Vendors", "vendors", "vend":
		return TypeVendors
	case "Customers", "customers", "cust":
		return TypeCustomers
	default:
		return TypeAll
	}
}

// Next cycles All -> Vendors -> Customers -> All.
func (t PartnerType) Next() PartnerType {
	return (t + 1) % 3
}

// FilterSet is one set of listing filters. Empty strings mean "unset".
// FilterSet is comparable; two sets are equal when every field is equal.
type FilterSet struct {
	Name        string
	TaxID       string
	PartnerCode string
	Company     string // company code or "CODE - description" label
	Category    string // industry code
	BlockedOnly bool
	Type        PartnerType
}

// IsZero reports whether no filter is set.
func (f FilterSet) IsZero() bool {
	return f == FilterSet{}
}

// RawPartner is a partner record as the backend returns it. Every field
// except ID may be missing or null.
type RawPartner struct {
	ID             int64   `json:"id"`
	PartnerNumber  *string `json:"partnerNumber"`
	CompanyCode    *string `json:"companyCode"`
	Name1          *string `json:"name1"`
	Name2          *string `json:"name2"`
	BusinessGroup  *string `json:"businessGroup"`
	Industry       *string `json:"industry"`
	TypeName       *string `json:"typeName"`
	Phone1         *string `json:"phone1"`
	Phone2         *string `json:"phone2"`
	Email          *string `json:"email"`
	Address        *string `json:"address"`
	WithTaxType    *string `json:"withTaxType"`
	HoldingSubject *string `json:"holdingSubject"`
	SearchTerm1    *string `json:"searchTerm1"`
	SearchTerm2    *string `json:"searchTerm2"`
	TaxID          *string `json:"taxId"`
	TaxEndDate     *string `json:"taxEndDate"`
	TaxDaysLeft    *int    `json:"taxDaysLeft"`
	CommercialID   *string `json:"commercialId"`
	CREndDate      *string `json:"crEndDate"`
	CRDaysLeft     *int    `json:"crDaysLeft"`
	VATNumber      *string `json:"vatNumber"`
	VATStartDate   *string `json:"vatStartDate"`
	VATEndDate     *string `json:"vatEndDate"`
	Class          *string `json:"class"`
	Status         *string `json:"status"`
	BlockReason    *string `json:"blockReason"`
	HasFile        *bool   `json:"hasFile"`
}

// PartnerRow is the display shape of a partner record. Rows are built
// fresh from every response and never persisted.
type PartnerRow struct {
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
	TaxDaysLeft    int
	CommercialID   string
	CREndDate      string
	CRDaysLeft     int
	VATNumber      string
	VATStartDate   string
	VATEndDate     string
	Class          string
	Status         string
	Blocked        bool
	BlockReason    string
	HasAttachment  bool
}

// ListRequest asks the backend for one page of partners.
type ListRequest struct {
	Filters FilterSet
	Cursor  Cursor // empty for the first page
}

// ListPage is one page of raw partner records.
type ListPage struct {
	Items       []RawPartner
	NextCursor  Cursor
	HasNextPage bool
}

// File is the binary content of a stored attachment.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}
