// Package codec encodes records in the protobuf wire format. Every encoding
// starts with a one-byte record kind followed by the record's fields in
// ascending field-number order, so equal records always encode to equal bytes.
// Decoding is strict: it accepts exactly what Encode produces.
package codec

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/clinicstore/internal/model"
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxSize is the largest encoding any record may have.
const MaxSize = 1024

var (
	ErrTooLarge  = errors.New("encoded record exceeds maximum size")
	ErrMalformed = errors.New("malformed record encoding")
)

const (
	kindPatient       byte = 'P'
	kindAppointment   byte = 'A'
	kindMessage       byte = 'M'
	kindMedicalRecord byte = 'R'
)

type Patient struct{}

func (Patient) Encode(p model.Patient) ([]byte, error) {
	b := []byte{kindPatient}
	b = appendVarint(b, 1, p.ID)
	b = appendString(b, 2, p.Name)
	b = appendString(b, 3, p.ContactDetails)
	b = appendString(b, 4, p.MedicalHistory)
	return checkSize(b, "patient", p.ID)
}

func (Patient) Decode(b []byte) (model.Patient, error) {
	var p model.Patient
	body, err := stripKind(b, kindPatient)
	if err != nil {
		return p, err
	}
	err = walk(body, []field{
		{num: 1, typ: protowire.VarintType, varint: &p.ID},
		{num: 2, typ: protowire.BytesType, str: &p.Name},
		{num: 3, typ: protowire.BytesType, str: &p.ContactDetails},
		{num: 4, typ: protowire.BytesType, str: &p.MedicalHistory},
	})
	return p, err
}

type Appointment struct{}

func (Appointment) Encode(a model.Appointment) ([]byte, error) {
	b := []byte{kindAppointment}
	b = appendVarint(b, 1, a.ID)
	b = appendVarint(b, 2, a.PatientID)
	b = appendVarint(b, 3, a.DoctorID)
	b = appendVarint(b, 4, a.DateTime)
	b = appendString(b, 5, a.Reason)
	b = appendMultimedia(b, 6, a.MultimediaContent)
	return checkSize(b, "appointment", a.ID)
}

func (Appointment) Decode(b []byte) (model.Appointment, error) {
	var a model.Appointment
	body, err := stripKind(b, kindAppointment)
	if err != nil {
		return a, err
	}
	err = walk(body, []field{
		{num: 1, typ: protowire.VarintType, varint: &a.ID},
		{num: 2, typ: protowire.VarintType, varint: &a.PatientID},
		{num: 3, typ: protowire.VarintType, varint: &a.DoctorID},
		{num: 4, typ: protowire.VarintType, varint: &a.DateTime},
		{num: 5, typ: protowire.BytesType, str: &a.Reason},
		{num: 6, typ: protowire.BytesType, optional: true, media: &a.MultimediaContent},
	})
	return a, err
}

type Message struct{}

func (Message) Encode(m model.Message) ([]byte, error) {
	b := []byte{kindMessage}
	b = appendVarint(b, 1, m.ID)
	b = appendVarint(b, 2, m.SenderID)
	b = appendVarint(b, 3, m.ReceiverID)
	b = appendString(b, 4, m.Content)
	b = appendMultimedia(b, 5, m.MultimediaContent)
	return checkSize(b, "message", m.ID)
}

func (Message) Decode(b []byte) (model.Message, error) {
	var m model.Message
	body, err := stripKind(b, kindMessage)
	if err != nil {
		return m, err
	}
	err = walk(body, []field{
		{num: 1, typ: protowire.VarintType, varint: &m.ID},
		{num: 2, typ: protowire.VarintType, varint: &m.SenderID},
		{num: 3, typ: protowire.VarintType, varint: &m.ReceiverID},
		{num: 4, typ: protowire.BytesType, str: &m.Content},
		{num: 5, typ: protowire.BytesType, optional: true, media: &m.MultimediaContent},
	})
	return m, err
}

type MedicalRecord struct{}

func (MedicalRecord) Encode(r model.MedicalRecord) ([]byte, error) {
	b := []byte{kindMedicalRecord}
	b = appendVarint(b, 1, r.ID)
	b = appendVarint(b, 2, r.PatientID)
	b = appendString(b, 3, r.LabResults)
	b = appendString(b, 4, r.TreatmentHistory)
	return checkSize(b, "medical record", r.ID)
}

func (MedicalRecord) Decode(b []byte) (model.MedicalRecord, error) {
	var r model.MedicalRecord
	body, err := stripKind(b, kindMedicalRecord)
	if err != nil {
		return r, err
	}
	err = walk(body, []field{
		{num: 1, typ: protowire.VarintType, varint: &r.ID},
		{num: 2, typ: protowire.VarintType, varint: &r.PatientID},
		{num: 3, typ: protowire.BytesType, str: &r.LabResults},
		{num: 4, typ: protowire.BytesType, str: &r.TreatmentHistory},
	})
	return r, err
}

func checkSize(b []byte, kind string, id uint64) ([]byte, error) {
	if len(b) > MaxSize {
		return nil, fmt.Errorf("%w: %s %d encodes to %d bytes (max %d)", ErrTooLarge, kind, id, len(b), MaxSize)
	}
	return b, nil
}

func stripKind(b []byte, want byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if len(b) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum size", ErrMalformed, len(b))
	}
	if b[0] != want {
		return nil, fmt.Errorf("%w: record kind %q, expected %q", ErrMalformed, b[0], want)
	}
	return b[1:], nil
}
