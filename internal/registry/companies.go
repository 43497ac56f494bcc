package registry

// Companies lists the group companies offered by the company selectors,
// as "CODE - description" labels.
var Companies = []string{
	"B100 - Wajhat Advanced Arch.",
	"B200 - Fit Interiors",
	"B300 - Engineering New Cities Co",
	"B400 - Edge Eng for specialized",
	"BH01 - SIAC H.for Build Mat&Supp",
	"C100 - SIAC Construction",
	"C101 - Qatar Branch",
	"C102 - Yemen Branch",
	"C103 - SIAC International Contra",
	"C104 - SIAC Solutions",
	"C200 - Edge Construction & Indus",
	"C300 - STEEL TEC - Enginerring",
	"C400 - Integrated Real Estate De",
	"CH01 - SIAC Holding for Eng&Cons",
	"D100 - Pyramids Development Indu",
	"D200 - Pyramids Zona Franca Egyp",
	"D300 - Polaris International Ind",
	"D400 - Bonyan For Investment & D",
	"D500 - Group Real Estate Develop",
	"D600 - Gulf of Suez Development",
	"D700 - Siac Assets & Facilities",
	"D710 - Siac Facilities Managemen",
	"D800 - SIAC Developments",
	"DH01 - SIAC H.for Develop&Manage",
	"K300 - Tripple Ten Company",
	"SIAC - SIAC H.for Fi.Investments",
}

// Industries lists the category codes offered by the category selector.
var Industries = []string{
	"Manufacturing",
	"Services",
	"Trading",
}

// CompanyCodes returns the bare codes of Companies, in the same order.
func CompanyCodes() []string {
	codes := make([]string, len(Companies))
	for i, c := range Companies {
		codes[i] = CompanyCodeOf(c)
	}
	return codes
}

// CompanyLabel returns the full label for code, or code itself when the
// code is not in Companies.
func CompanyLabel(code string) string {
	for _, c := range Companies {
		if CompanyCodeOf(c) == code {
			return c
		}
	}
	return code
}
