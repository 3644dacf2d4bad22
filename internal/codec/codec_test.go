package codec

import (
	"strings"
	"testing"

	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func strPtr(s string) *string { return &s }

func multimediaVariants() []*model.MultimediaContent {
	return []*model.MultimediaContent{
		nil,
		{},
		{ImageURL: strPtr("https://cdn.example/xray.png")},
		{VideoURL: strPtr("")},
		{
			ImageURL: strPtr("https://cdn.example/a.png"),
			VideoURL: strPtr("https://cdn.example/b.mp4"),
			AudioURL: strPtr("https://cdn.example/c.ogg"),
		},
	}
}

func TestPatientRoundTrip(t *testing.T) {
	c := Patient{}
	for _, p := range []model.Patient{
		{},
		{ID: 1, Name: "Alice", ContactDetails: "555-1234", MedicalHistory: "none"},
		{ID: 1<<64 - 1, Name: "Zoë 患者", ContactDetails: "", MedicalHistory: strings.Repeat("h", 500)},
	} {
		b, err := c.Encode(p)
		require.NoError(t, err)
		got, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestAppointmentRoundTrip(t *testing.T) {
	c := Appointment{}
	for _, mm := range multimediaVariants() {
		a := model.Appointment{
			ID:                4,
			PatientID:         1,
			DoctorID:          77,
			DateTime:          1700000000,
			Reason:            "checkup",
			MultimediaContent: mm,
		}
		b, err := c.Encode(a)
		require.NoError(t, err)
		got, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	c := Message{}
	for _, mm := range multimediaVariants() {
		m := model.Message{ID: 9, SenderID: 0, ReceiverID: 42, Content: "take your meds", MultimediaContent: mm}
		b, err := c.Encode(m)
		require.NoError(t, err)
		got, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestMedicalRecordRoundTrip(t *testing.T) {
	c := MedicalRecord{}
	r := model.MedicalRecord{ID: 5, PatientID: 1, LabResults: "A1C 5.4", TreatmentHistory: ""}
	b, err := c.Encode(r)
	require.NoError(t, err)
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestEncodingIsDeterministic(t *testing.T) {
	a := model.Appointment{ID: 1, Reason: "x", MultimediaContent: &model.MultimediaContent{AudioURL: strPtr("a")}}
	b1, err := Appointment{}.Encode(a)
	require.NoError(t, err)

	// An equal value built separately.
	b2, err := Appointment{}.Encode(model.Appointment{ID: 1, Reason: "x", MultimediaContent: &model.MultimediaContent{AudioURL: strPtr("a")}})
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestAbsentAndEmptyMultimediaDiffer(t *testing.T) {
	withNil, err := Message{}.Encode(model.Message{ID: 1, Content: "hi"})
	require.NoError(t, err)
	withEmpty, err := Message{}.Encode(model.Message{ID: 1, Content: "hi", MultimediaContent: &model.MultimediaContent{}})
	require.NoError(t, err)
	assert.NotEqual(t, withNil, withEmpty)

	got, err := Message{}.Decode(withEmpty)
	require.NoError(t, err)
	require.NotNil(t, got.MultimediaContent)
	assert.Nil(t, got.MultimediaContent.ImageURL)
}

func TestEncodeRejectsOversize(t *testing.T) {
	_, err := Patient{}.Encode(model.Patient{ID: 1, Name: "n", MedicalHistory: strings.Repeat("x", MaxSize)})
	require.ErrorIs(t, err, ErrTooLarge)

	// A record that exactly fits is accepted.
	p := model.Patient{ID: 1}
	base, err := Patient{}.Encode(p)
	require.NoError(t, err)
	// One byte of length prefix is already counted for the empty history; a
	// history up to 127 bytes keeps it at one byte.
	p.MedicalHistory = strings.Repeat("x", 100)
	p.Name = strings.Repeat("y", MaxSize-len(base)-100-1)
	b, err := Patient{}.Encode(p)
	require.NoError(t, err)
	assert.Len(t, b, MaxSize)
}

func TestDecodeRejectsForeignBytes(t *testing.T) {
	valid, err := Patient{}.Encode(model.Patient{ID: 3, Name: "Bob"})
	require.NoError(t, err)

	withTrailing := append(append([]byte{}, valid...), 0x08, 0x01)

	var unknown []byte
	unknown = append(unknown, valid...)
	unknown = protowire.AppendTag(unknown, 9, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 1)

	wrongType := []byte{kindPatient}
	wrongType = protowire.AppendTag(wrongType, 1, protowire.BytesType)
	wrongType = protowire.AppendString(wrongType, "1")

	for name, b := range map[string][]byte{
		"empty":          nil,
		"wrong kind":     append([]byte{kindMessage}, valid[1:]...),
		"truncated":      valid[:len(valid)-1],
		"trailing field": withTrailing,
		"unknown field":  unknown,
		"wrong type":     wrongType,
		"missing fields": {kindPatient, 0x08, 0x03},
		"garbage":        {kindPatient, 0xff, 0xff, 0xff},
		"oversize":       append([]byte{kindPatient}, make([]byte, MaxSize)...),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Patient{}.Decode(b)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeRejectsBadMultimedia(t *testing.T) {
	b := []byte{kindMessage}
	b = appendVarint(b, 1, 1)
	b = appendVarint(b, 2, 0)
	b = appendVarint(b, 3, 2)
	b = appendString(b, 4, "hi")
	inner := appendString(nil, 2, "v")
	inner = appendString(inner, 1, "i")
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)

	_, err := Message{}.Decode(b)
	require.ErrorIs(t, err, ErrMalformed)
}
