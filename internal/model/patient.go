package model

type Patient struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	ContactDetails string `json:"contact_details"`
	MedicalHistory string `json:"medical_history"`
}

type PatientRequest struct {
	Name           string `json:"name" validate:"required" message:"Name cannot be empty"`
	ContactDetails string `json:"contact_details"`
	MedicalHistory string `json:"medical_history"`
}

// ReminderRequest is a system message addressed to a patient.
type ReminderRequest struct {
	Content           string             `json:"content" validate:"required" message:"Reminder content cannot be empty"`
	MultimediaContent *MultimediaContent `json:"multimedia_content"`
}
