package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var summaryTemplate = template.Must(template.New("claim-summary").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(claimSummaryTemplate))

// SummaryData holds data for claim summary rendering
type SummaryData struct {
	ClaimNumber     string
	InsuredName     string
	CarrierName     string
	PolicyNumber    string
	Status          string
	LossDate        string
	LossDescription string
	CreatedAt       time.Time
	Organization    string
	Fields          []FieldRow
}

// RenderClaimSummaryHTML renders the claim summary template with provided data
func RenderClaimSummaryHTML(data SummaryData) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const claimSummaryTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Claim {{.ClaimNumber}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { width: 100%; border-collapse: collapse; margin: 1rem 0; }
    th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; font-size: 0.9em; }
    th { background: #f5f5f5; }
    .status { text-transform: uppercase; font-size: 0.8em; letter-spacing: 0.05em; }
    .description { background: #f5f5f5; padding: 1rem; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>Claim {{.ClaimNumber}}</h1>
  <div class="meta">{{.Organization}} | Prepared {{formatDate .CreatedAt "Jan 2, 2006"}}</div>

  <table>
    <tr><th>Insured</th><td>{{.InsuredName}}</td></tr>
    <tr><th>Carrier</th><td>{{.CarrierName}}</td></tr>
    <tr><th>Policy Number</th><td>{{.PolicyNumber}}</td></tr>
    <tr><th>Status</th><td class="status">{{.Status}}</td></tr>
    {{if .LossDate}}<tr><th>Date of Loss</th><td>{{.LossDate}}</td></tr>{{end}}
  </table>

  {{if .LossDescription}}
  <h2>Loss Description</h2>
  <div class="description">{{.LossDescription}}</div>
  {{end}}

  {{if .Fields}}
  <h2>Field Confirmation Record</h2>
  <table>
    <tr><th>Field</th><th>Value</th><th>Status</th><th>Confidence</th><th>Confirmed By</th></tr>
    {{range .Fields}}
    <tr>
      <td>{{.Path}}</td>
      <td>{{.Value}}</td>
      <td class="status">{{.Status}}</td>
      <td>{{lower .Confidence}}</td>
      <td>{{.ConfirmedBy}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
</body>
</html>`
