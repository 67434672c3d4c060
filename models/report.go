package models

import "time"

// Report is the root compliance record (a drug import/registration dossier).
// Sub-records are optional and attached independently later in the workflow;
// nothing here may assume they arrive in order, or at all.
type Report struct {
	ID       string         `json:"id"`
	DTN      string         `json:"dtn"`
	Category ReportCategory `json:"category"`

	DateReceivedByCenter FlexDate `json:"date_received_by_center"`
	DateDecked           FlexDate `json:"date_decked"`
	DateEvaluated        FlexDate `json:"date_evaluated"`
	DateOfIssuance       FlexDate `json:"date_of_issuance"`
	CertificateValidity  FlexDate `json:"certificate_validity"`
	ReleasedDate         FlexDate `json:"released_date"`
	OverallDeadline      FlexDate `json:"overall_deadline"`

	Status ReportStatus `json:"status"`

	CreatedBy string     `json:"created_by"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedBy string     `json:"updated_by"`
	UpdatedAt *time.Time `json:"updated_at"`

	FrooReport    *FrooReport    `json:"froo_report"`
	CdrrSecondary *CdrrSecondary `json:"cdrr_secondary"`
}

// HasFrooReport reports whether the inspection sub-record exists.
func (r *Report) HasFrooReport() bool {
	return r.FrooReport != nil
}

// HasCdrrSecondary reports whether the secondary-review sub-record exists.
func (r *Report) HasCdrrSecondary() bool {
	return r.CdrrSecondary != nil
}

// FrooReport is the field-inspection outcome. Meaningful only on NON-PICS
// reports; its absence on one means the report is still awaiting inspection.
type FrooReport struct {
	DateReceived          FlexDate `json:"date_received"`
	DateInspected         FlexDate `json:"date_inspected"`
	DateEndorsedToCdrr    FlexDate `json:"date_endorsed_to_cdrr"`
	OverallDeadline       FlexDate `json:"overall_deadline"`
	ApprovedExtension     FlexDate `json:"approved_extension"`
	NewOverallDeadline    FlexDate `json:"new_overall_deadline"`
	DateExtensionApproved FlexDate `json:"date_extension_approved"`
	IsApproved            *bool    `json:"is_approved"`
	Status                string   `json:"status"`

	CreatedBy string     `json:"created_by"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedBy string     `json:"updated_by"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// CdrrSecondary is the secondary review outcome. Its presence implies a
// FrooReport already exists on the same report.
type CdrrSecondary struct {
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

	CreatedBy string     `json:"created_by"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedBy string     `json:"updated_by"`
	UpdatedAt *time.Time `json:"updated_at"`
}
