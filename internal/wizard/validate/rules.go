package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rule is one declarative field check inside a step table. Validator runs
// only on non-empty values and receives the full wizard data so rules can
// reach into sibling step data.
type Rule struct {
	Required  bool
	Label     string
	Section   string
	Validator func(value any, data map[string]any) string
}

type fieldRule struct {
	Path string
	Rule Rule
}

var (
	phonePattern = regexp.MustCompile(`^\(?([0-9]{3})\)?[-. ]?([0-9]{3})[-. ]?([0-9]{4})$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// stepRules holds the per-step tables in declaration order so validation
// output is deterministic.
var stepRules = map[string][]fieldRule{
	"policy-upload": {
		{"extractedPolicyData", Rule{
			Required: true,
			Label:    "Policy Document",
			Section:  "Document Upload",
			Validator: func(value any, _ map[string]any) string {
				doc, ok := value.(map[string]any)
				if !ok || doc["validationComplete"] != true {
					return "Policy document must be uploaded and validated"
				}
				return ""
			},
		}},
	},

	"client-details": {
		{"insuredDetails.firstName", Rule{
			Required: true,
			Label:    "First Name",
			Section:  "Personal Information",
			Validator: func(value any, _ map[string]any) string {
				s, _ := value.(string)
				if len(strings.TrimSpace(s)) < 2 {
					return "First name must be at least 2 characters"
				}
				return ""
			},
		}},
		{"insuredDetails.lastName", Rule{
			Required: true,
			Label:    "Last Name",
			Section:  "Personal Information",
		}},
		{"insuredDetails.phone", Rule{
			Required:  true,
			Label:     "Phone Number",
			Section:   "Contact Information",
			Validator: patternValidator(phonePattern, "Please enter a valid phone number"),
		}},
		{"insuredDetails.email", Rule{
			Required:  true,
			Label:     "Email Address",
			Section:   "Contact Information",
			Validator: patternValidator(emailPattern, "Please enter a valid email address"),
		}},
		{"mailingAddress.address", Rule{
			Required: true,
			Label:    "Mailing Address",
			Section:  "Address Information",
		}},
		{"mailingAddress.city", Rule{
			Required: true,
			Label:    "City",
			Section:  "Address Information",
		}},
		{"mailingAddress.state", Rule{
			Required: true,
			Label:    "State",
			Section:  "Address Information",
		}},
		{"mailingAddress.zipCode", Rule{
			Required:  true,
			Label:     "ZIP Code",
			Section:   "Address Information",
			Validator: patternValidator(zipPattern, "Please enter a valid ZIP code"),
		}},
	},

	"insurance-info": {
		{"insuranceCarrier.name", Rule{
			Required: true,
			Label:    "Insurance Carrier",
			Section:  "Insurance Details",
		}},
		{"policyDetails.policyNumber", Rule{
			Required: true,
			Label:    "Policy Number",
			Section:  "Policy Information",
			Validator: func(value any, _ map[string]any) string {
				s, _ := value.(string)
				if len(strings.TrimSpace(s)) < 3 {
					return "Policy number must be at least 3 characters"
				}
				return ""
			},
		}},
		{"policyDetails.effectiveDate", Rule{
			Required: true,
			Label:    "Policy Effective Date",
			Section:  "Policy Information",
			Validator: func(value any, _ map[string]any) string {
				if _, err := parseDate(value); err != nil {
					return "Please enter a valid date"
				}
				return ""
			},
		}},
		{"policyDetails.expirationDate", Rule{
			Required: true,
			Label:    "Policy Expiration Date",
			Section:  "Policy Information",
		}},
		{"insuranceCarrier.agentInfo.agencyName", Rule{
			Label:   "Agency Name",
			Section: "Agent Information",
		}},
		{"insuranceCarrier.agentInfo.agentFirstName", Rule{
			Label:   "Agent First Name",
			Section: "Agent Information",
		}},
		{"insuranceCarrier.agentInfo.agentLastName", Rule{
			Label:   "Agent Last Name",
			Section: "Agent Information",
		}},
		{"insuranceCarrier.agentInfo.agentEmail", Rule{
			Label:     "Agent Email",
			Section:   "Agent Information",
			Validator: patternValidator(emailPattern, "Please enter a valid email address"),
		}},
		{"insuranceCarrier.agentInfo.agentPhone", Rule{
			Label:     "Agent Phone",
			Section:   "Agent Information",
			Validator: patternValidator(phonePattern, "Please enter a valid phone number"),
		}},
		{"insurerPersonnel", Rule{
			Label:     "Personnel Information",
			Section:   "Personnel Details",
			Validator: validatePersonnel,
		}},
	},

	"claim-info": {
		{"lossDetails.reasonForLoss", Rule{
			Required: true,
			Label:    "Reason for Loss",
			Section:  "Loss Information",
		}},
		{"lossDetails.dateOfLoss", Rule{
			Required:  true,
			Label:     "Date of Loss",
			Section:   "Loss Information",
			Validator: validateDateOfLoss,
		}},
		{"lossDetails.causeOfLoss", Rule{
			Required: true,
			Label:    "Cause of Loss",
			Section:  "Loss Information",
		}},
		{"lossDetails.lossDescription", Rule{
			Required: true,
			Label:    "Loss Description",
			Section:  "Loss Information",
			Validator: func(value any, _ map[string]any) string {
				s, _ := value.(string)
				if len(strings.TrimSpace(s)) < 20 {
					return "Loss description must be at least 20 characters"
				}
				return ""
			},
		}},
	},

	"referral": {
		{"referralInformation.source", Rule{
			Required: true,
			Label:    "Referral Source",
			Section:  "Referral Information",
		}},
	},

	"contract": {
		{"contractInformation.feeStructure", Rule{
			Required: true,
			Label:    "Fee Structure",
			Section:  "Contract Terms",
		}},
		{"contractInformation.contractDate", Rule{
			Required: true,
			Label:    "Contract Date",
			Section:  "Contract Terms",
		}},
	},
}

func patternValidator(pattern *regexp.Regexp, message string) func(any, map[string]any) string {
	return func(value any, _ map[string]any) string {
		s, _ := value.(string)
		if !pattern.MatchString(s) {
			return message
		}
		return ""
	}
}

// validateDateOfLoss is the cross-field rule: when the insurance-info step
// has already supplied policy dates, the loss must fall inside the coverage
// window.
func validateDateOfLoss(value any, data map[string]any) string {
	lossDate, err := parseDate(value)
	if err != nil {
		return "Please enter a valid date"
	}

	effectiveRaw := nestedValue(data, "policyDetails.effectiveDate")
	expirationRaw := nestedValue(data, "policyDetails.expirationDate")
	if effectiveRaw == nil || expirationRaw == nil {
		return ""
	}
	effective, err := parseDate(effectiveRaw)
	if err != nil {
		return ""
	}
	expiration, err := parseDate(expirationRaw)
	if err != nil {
		return ""
	}

	if lossDate.Before(effective) || lossDate.After(expiration) {
		return "Date of loss must be within policy coverage period"
	}
	return ""
}

func validatePersonnel(value any, _ map[string]any) string {
	list, ok := value.([]any)
	if !ok {
		return ""
	}
	for _, entry := range list {
		person, ok := entry.(map[string]any)
		if !ok {
			return "All personnel must have first and last name"
		}
		if emptyString(person["firstName"]) || emptyString(person["lastName"]) {
			return "All personnel must have first and last name"
		}
		email, _ := person["email"].(string)
		if !emailPattern.MatchString(email) {
			return "All personnel must have valid email addresses"
		}
		phones, _ := person["phoneNumbers"].([]any)
		if len(phones) == 0 {
			return "All personnel must have at least one phone number"
		}
		personnelType, _ := person["personnelType"].(string)
		if personnelType == "" {
			return "All personnel must have a personnel type selected"
		}
		if personnelType == "Vendor" && emptyString(person["vendorSubType"]) {
			return "Vendor personnel must have a specialty selected"
		}
	}
	return ""
}

func emptyString(value any) bool {
	s, _ := value.(string)
	return strings.TrimSpace(s) == ""
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %v", value)
}
