package export

// Service renders claim summaries. The caller assembles the claim data and
// confirmation rows; this package owns layout and PDF generation.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ClaimSummary renders the claim and its field-confirmation record to PDF.
func (s *Service) ClaimSummary(claim ClaimInfo, organization string, fields []FieldRow) (*Result, error) {
	data := SummaryData{
		ClaimNumber:     claim.ClaimNumber,
		InsuredName:     claim.InsuredName,
		CarrierName:     claim.CarrierName,
		PolicyNumber:    claim.PolicyNumber,
		Status:          claim.Status,
		LossDescription: claim.LossDescription,
		CreatedAt:       claim.CreatedAt,
		Organization:    organization,
		Fields:          fields,
	}
	if claim.LossDate != nil {
		data.LossDate = claim.LossDate.Format("January 2, 2006")
	}

	html, err := RenderClaimSummaryHTML(data)
	if err != nil {
		return nil, err
	}
	return renderPDF(html, "Claim "+claim.ClaimNumber)
}
