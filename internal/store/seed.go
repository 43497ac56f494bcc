package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/rotisserie/eris"
)

// SampleSize is the number of partners SeedSample creates.
const SampleSize = 47

// sampleCompanies is the order in which sample partners are spread across
// the group companies.
var sampleCompanies = []string{
	"D100", "D710", "BH01", "DH01", "B200", "D600", "C102", "C200", "CH01",
	"D500", "K300", "B300", "D300", "C103", "C100", "C400", "D200", "B400",
	"C101", "C104", "B100", "D400", "D800", "SIAC", "C300", "D700",
}

var (
	sampleGroups     = []string{"Group A", "Group B", "Group C"}
	sampleIndustries = []string{"Manufacturing", "Services", "Trading"}
	sampleClasses    = []string{"Class A", "Class B", "Class C"}
)

// SamplePartners builds the sample data set with end dates relative to
// today. Every tenth partner is blocked.
func SamplePartners(today time.Time) []Partner {
	date := func(days int) string {
		return today.AddDate(0, 0, days).Format(DateLayout)
	}

	partners := make([]Partner, 0, SampleSize)
	for i := range SampleSize {
		p := Partner{
			PartnerNumber:  fmt.Sprintf("P%d", 1000+i),
			CompanyCode:    sampleCompanies[i%len(sampleCompanies)],
			Name1:          fmt.Sprintf("Company %d", i+1),
			Name2:          fmt.Sprintf("Branch %d", i%5+1),
			BusinessGroup:  sampleGroups[i%3],
			Industry:       sampleIndustries[i%3],
			TypeName:       "Vendor",
			Phone1:         fmt.Sprintf("+971-50-%04d", (1000+i)%10000),
			Phone2:         fmt.Sprintf("+971-4-%04d", (2000+i)%10000),
			Email:          fmt.Sprintf("contact%d@company.ae", i),
			Address:        fmt.Sprintf("%d Business Street, Dubai, UAE", i+1),
			WithTaxType:    "VAT",
			HoldingSubject: "Yes",
			SearchTerm1:    fmt.Sprintf("term%d", i),
			SearchTerm2:    fmt.Sprintf("tag%d", i),
			TaxID:          fmt.Sprintf("TAX%d", 10000+i),
			TaxEndDate:     date((i*37)%365 - 15),
			CommercialID:   fmt.Sprintf("CR%d", 100000+i),
			CREndDate:      date((i*53)%365 - 10),
			VATNumber:      fmt.Sprintf("VAT%d", 300000+i),
			VATStartDate:   date(-365 + i),
			VATEndDate:     date(i * 7),
			Class:          sampleClasses[i%3],
			Status:         registry.StatusActive,
		}
		if i%2 == 1 {
			p.TypeName = "Customer"
			p.WithTaxType = "NoVAT"
			p.HoldingSubject = "No"
		}
		if i%10 == 0 {
			p.Status = "Blocked"
			p.BlockReason = "Non-compliance"
		}
		partners = append(partners, p)
	}
	return partners
}

// SeedSample inserts the sample partners when the partner table is empty.
// It returns the number of partners inserted.
func (s *Store) SeedSample(ctx context.Context) (int, error) {
	n, err := s.CountPartners(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	partners := SamplePartners(s.now())
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range partners {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO partners (
					partner_number, company_code, name1, name2, business_group,
					industry, type_name, phone1, phone2, email, address,
					with_tax_type, holding_subject, search_term1, search_term2,
					tax_id, tax_end_date, commercial_id, cr_end_date, vat_number,
					vat_start_date, vat_end_date, class, status, block_reason
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.PartnerNumber, p.CompanyCode, p.Name1, p.Name2, p.BusinessGroup,
				p.Industry, p.TypeName, p.Phone1, p.Phone2, p.Email, p.Address,
				p.WithTaxType, p.HoldingSubject, p.SearchTerm1, p.SearchTerm2,
				p.TaxID, p.TaxEndDate, p.CommercialID, p.CREndDate, p.VATNumber,
				p.VATStartDate, p.VATEndDate, p.Class, p.Status, p.BlockReason,
			)
			if err != nil {
				return eris.Wrapf(err, "seed partner %s", p.PartnerNumber)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(partners), nil
}
