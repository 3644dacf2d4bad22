// Package service holds what the record services share: event names and the
// mapping of validation and storage failures onto application errors.
package service

import (
	"errors"
	"fmt"

	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
	"github.com/jwalitptl/clinicstore/pkg/validator"
)

// Event types published after successful mutations.
const (
	EventPatientCreate       = "PATIENT_CREATE"
	EventPatientUpdate       = "PATIENT_UPDATE"
	EventPatientDelete       = "PATIENT_DELETE"
	EventAppointmentCreate   = "APPOINTMENT_CREATE"
	EventAppointmentUpdate   = "APPOINTMENT_UPDATE"
	EventAppointmentDelete   = "APPOINTMENT_DELETE"
	EventMessageCreate       = "MESSAGE_CREATE"
	EventMessageUpdate       = "MESSAGE_UPDATE"
	EventMessageDelete       = "MESSAGE_DELETE"
	EventReminderSent        = "REMINDER_SENT"
	EventMedicalRecordCreate = "MEDICAL_RECORD_CREATE"
	EventMedicalRecordUpdate = "MEDICAL_RECORD_UPDATE"
	EventMedicalRecordDelete = "MEDICAL_RECORD_DELETE"
)

// ErrMissingRequest is returned when a nil request reaches a service.
var ErrMissingRequest = apperrors.InvalidInput("request body is required", nil)

// Validate runs v over req and reports the first failure as InvalidInput
// carrying the field's message.
func Validate(v validator.Validator, req interface{}) error {
	if err := v.Validate(req); err != nil {
		return ValidationError(err)
	}
	return nil
}

func ValidationError(err error) error {
	var fe *validator.FieldError
	if errors.As(err, &fe) {
		return apperrors.InvalidInput(fe.Message, nil)
	}
	return apperrors.InvalidInput("invalid input", err)
}

// StoreError reports a storage failure as Internal.
func StoreError(action string, err error) error {
	return apperrors.Internal(fmt.Errorf("failed to %s: %w", action, err))
}

// DeletedEvent is the payload of every *_DELETE event.
type DeletedEvent struct {
	ID uint64 `json:"id"`
}
