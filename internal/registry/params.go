package registry

import (
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the fixed number of rows requested per page.
const PageSize = 10

// Query parameter names understood by the partner listing endpoint.
const (
	ParamName        = "name"
	ParamTaxID       = "taxId"
	ParamPartnerCode = "partnerNumber"
	ParamCompany     = "companyCode"
	ParamIndustry    = "industry"
	ParamBlocked     = "blocked"
	ParamTypeName    = "typeName"
	ParamCursor      = "cursor"
	ParamPageSize    = "pageSize"
)

// Type-name filter values sent for the Vendors and Customers selectors.
const (
	TypeNameVendor   = "Vend"
	TypeNameCustomer = "Cust"
)

// BuildListQuery serializes a listing request into query parameters.
// Only set filters are sent; the page size is always present.
func BuildListQuery(req ListRequest) url.Values {
	f := req.Filters
	params := url.Values{}

	if f.Name != "" {
		params.Set(ParamName, f.Name)
	}
	if f.TaxID != "" {
		params.Set(ParamTaxID, f.TaxID)
	}
	if f.PartnerCode != "" {
		params.Set(ParamPartnerCode, f.PartnerCode)
	}
	if code := CompanyCodeOf(f.Company); code != "" {
		params.Set(ParamCompany, code)
	}
	if f.Category != "" {
		params.Set(ParamIndustry, f.Category)
	}
	if f.BlockedOnly {
		params.Set(ParamBlocked, "true")
	}
	switch f.Type {
	case TypeVendors:
		params.Set(ParamTypeName, TypeNameVendor)
	case TypeCustomers:
		params.Set(ParamTypeName, TypeNameCustomer)
	}

	if !req.Cursor.IsZero() {
		params.Set(ParamCursor, string(req.Cursor))
	}
	params.Set(ParamPageSize, strconv.Itoa(PageSize))

	return params
}

// ParseListQuery is the inverse of BuildListQuery, used by the dev backend.
// The returned page size is clamped to [1, 100].
func ParseListQuery(params url.Values) (ListRequest, int) {
	req := ListRequest{
		Filters: FilterSet{
			Name:        params.Get(ParamName),
			TaxID:       params.Get(ParamTaxID),
			PartnerCode: params.Get(ParamPartnerCode),
			Company:     params.Get(ParamCompany),
			Category:    params.Get(ParamIndustry),
			BlockedOnly: params.Get(ParamBlocked) == "true",
		},
		Cursor: Cursor(params.Get(ParamCursor)),
	}
	switch params.Get(ParamTypeName) {
	case TypeNameVendor:
		req.Filters.Type = TypeVendors
	case TypeNameCustomer:
		req.Filters.Type = TypeCustomers
	}

	size, err := strconv.Atoi(params.Get(ParamPageSize))
	if err != nil || size < 1 || size > 100 {
		size = PageSize
	}
	return req, size
}

// CompanyCodeOf extracts the leading code token from a company label such
// as "B100 - Wajhat Advanced Arch.". A bare code is returned unchanged.
func CompanyCodeOf(label string) string {
	label = strings.TrimSpace(label)
	if i := strings.Index(label, " - "); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}
