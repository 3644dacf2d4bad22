package model

type Appointment struct {
	ID                uint64             `json:"id"`
	PatientID         uint64             `json:"patient_id"`
	DoctorID          uint64             `json:"doctor_id"`
	DateTime          uint64             `json:"date_time"`
	Reason            string             `json:"reason"`
	MultimediaContent *MultimediaContent `json:"multimedia_content"`
}

type AppointmentRequest struct {
	PatientID         uint64             `json:"patient_id"`
	DoctorID          uint64             `json:"doctor_id"`
	DateTime          uint64             `json:"date_time"`
	Reason            string             `json:"reason" validate:"required" message:"Reason cannot be empty"`
	MultimediaContent *MultimediaContent `json:"multimedia_content"`
}
