package models

import "time"

// Write payloads for the remote store. Validation tags mirror what the store
// enforces so bad submissions fail before they leave this service.

// NewReport is the CDRR-group creation payload.
type NewReport struct {
	DTN                  string         `json:"dtn" validate:"required"`
	DateReceivedByCenter FlexDate       `json:"date_received_by_center" validate:"required"`
	Category             ReportCategory `json:"category" validate:"required,oneof='NON-PICS' 'PICS' 'LETTER AND CORRECTION'"`
	DateDecked           FlexDate       `json:"date_decked,omitempty"`
	DateEvaluated        FlexDate       `json:"date_evaluated,omitempty"`
	Status               ReportStatus   `json:"status,omitempty" validate:"omitempty,oneof='Pending' 'In Progress' 'Completed' 'Cancelled'"`
}

// DatesOrdered reports whether the workflow dates are chronologically
// plausible. Only pairs with both ends present are compared.
func (n NewReport) DatesOrdered() bool {
	return datesOrdered(n.DateReceivedByCenter, n.DateDecked, n.DateEvaluated)
}

// NewFrooReport is the Inspector-group creation payload: only a DTN plus the
// inspection data, linking to a forthcoming or existing report.
type NewFrooReport struct {
	DTN      string          `json:"dtn" validate:"required"`
	FrooData FrooReportInput `json:"froo_data" validate:"required"`
}

type FrooReportInput struct {
	DateReceived          FlexDate `json:"date_received"`
	DateInspected         FlexDate `json:"date_inspected"`
	DateEndorsedToCdrr    FlexDate `json:"date_endorsed_to_cdrr"`
	OverallDeadline       FlexDate `json:"overall_deadline"`
	ApprovedExtension     FlexDate `json:"approved_extension"`
	NewOverallDeadline    FlexDate `json:"new_overall_deadline"`
	DateExtensionApproved FlexDate `json:"date_extension_approved"`
	IsApproved            *bool    `json:"is_approved"`
	Status                string   `json:"status"`
}

type MainReportInput struct {
	DateReceivedByCenter FlexDate       `json:"date_received_by_center"`
	DateDecked           FlexDate       `json:"date_decked"`
	DateEvaluated        FlexDate       `json:"date_evaluated"`
	DateOfIssuance       FlexDate       `json:"date_of_issuance"`
	CertificateValidity  FlexDate       `json:"certificate_validity"`
	ReleasedDate         FlexDate       `json:"released_date"`
	OverallDeadline      FlexDate       `json:"overall_deadline"`
	Category             ReportCategory `json:"category,omitempty" validate:"omitempty,oneof='NON-PICS' 'PICS' 'LETTER AND CORRECTION'"`
	Status               ReportStatus   `json:"status,omitempty" validate:"omitempty,oneof='Pending' 'In Progress' 'Completed' 'Cancelled'"`
}

// DatesOrdered mirrors NewReport.DatesOrdered for the main-section update.
func (m MainReportInput) DatesOrdered() bool {
	return datesOrdered(m.DateReceivedByCenter, m.DateDecked, m.DateEvaluated,
		m.DateOfIssuance, m.ReleasedDate)
}

type CdrrSecondaryInput struct {
	DateReceived        FlexDate `json:"date_received"`
	SecpaNumber         string   `json:"secpa_number"`
	CertificateNumber   string   `json:"certificate_number"`
	DateOfIssuance      FlexDate `json:"date_of_issuance"`
	TypeOfIssuance      string   `json:"type_of_issuance"`
	ProductLine         string   `json:"product_line"`
	CertificateValidity FlexDate `json:"certificate_validity"`
	Status              string   `json:"status"`
	ReleasedDate        FlexDate `json:"released_date"`
	OverallDeadline     FlexDate `json:"overall_deadline"`
}

// UpdateSection carries exactly one section per request; the store applies
// whichever is present. ExactlyOne guards the contract.
type UpdateSection struct {
	MainData      *MainReportInput    `json:"main_data,omitempty"`
	SecondaryData *CdrrSecondaryInput `json:"secondary_data,omitempty"`
	FrooData      *FrooReportInput    `json:"froo_data,omitempty"`
}

func datesOrdered(seq ...FlexDate) bool {
	var prev *time.Time
	for _, d := range seq {
		t := d.Time()
		if t == nil {
			continue
		}
		if prev != nil && t.Before(*prev) {
			return false
		}
		prev = t
	}
	return true
}

func (u UpdateSection) ExactlyOne() bool {
	n := 0
	if u.MainData != nil {
		n++
	}
	if u.SecondaryData != nil {
		n++
	}
	if u.FrooData != nil {
		n++
	}
	return n == 1
}
