package model

type MedicalRecord struct {
	ID               uint64 `json:"id"`
	PatientID        uint64 `json:"patient_id"`
	LabResults       string `json:"lab_results"`
	TreatmentHistory string `json:"treatment_history"`
}

// MedicalRecordRequest carries no validation rules; every field is accepted as-is.
type MedicalRecordRequest struct {
	PatientID        uint64 `json:"patient_id"`
	LabResults       string `json:"lab_results"`
	TreatmentHistory string `json:"treatment_history"`
}
