package registry

import "github.com/mastera/partnerdesk/internal/textutil"

// StatusActive is the only status value that marks a partner as unblocked.
const StatusActive = "Active"

// Project converts a raw backend record into a display row. Missing text
// fields become "", missing day counters 0, a missing status "Active" and a
// missing attachment flag false. Project never fails.
func Project(r RawPartner) PartnerRow {
	status := str(r.Status)
	if status == "" {
		status = StatusActive
	}

	return PartnerRow{
		ID:             r.ID,
		PartnerNumber:  str(r.PartnerNumber),
		CompanyCode:    str(r.CompanyCode),
		Name1:          str(r.Name1),
		Name2:          str(r.Name2),
		BusinessGroup:  str(r.BusinessGroup),
		Industry:       str(r.Industry),
		TypeName:       str(r.TypeName),
		Phone1:         str(r.Phone1),
		Phone2:         str(r.Phone2),
		Email:          str(r.Email),
		Address:        str(r.Address),
		WithTaxType:    str(r.WithTaxType),
		HoldingSubject: str(r.HoldingSubject),
		SearchTerm1:    str(r.SearchTerm1),
		SearchTerm2:    str(r.SearchTerm2),
		TaxID:          str(r.TaxID),
		TaxEndDate:     str(r.TaxEndDate),
		TaxDaysLeft:    num(r.TaxDaysLeft),
		CommercialID:   str(r.CommercialID),
		CREndDate:      str(r.CREndDate),
		CRDaysLeft:     num(r.CRDaysLeft),
		VATNumber:      str(r.VATNumber),
		VATStartDate:   str(r.VATStartDate),
		VATEndDate:     str(r.VATEndDate),
		Class:          str(r.Class),
		Status:         status,
		Blocked:        status != StatusActive,
		BlockReason:    str(r.BlockReason),
		HasAttachment:  r.HasFile != nil && *r.HasFile,
	}
}

// ProjectAll projects every record, preserving order.
func ProjectAll(raw []RawPartner) []PartnerRow {
	rows := make([]PartnerRow, len(raw))
	for i, r := range raw {
		rows[i] = Project(r)
	}
	return rows
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return textutil.Printable(*p)
}

func num(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
