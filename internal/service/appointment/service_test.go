package appointment

import (
	"context"
	"testing"

	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/store"
	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/messaging"
	"github.com/jwalitptl/clinicstore/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.NewInMemory(logger.Nop(), nil)
	require.NoError(t, err)
	return NewService(st, validator.New(), messaging.NopPublisher{}, logger.Nop()), st
}

func strPtr(s string) *string { return &s }

func TestScheduleAppointment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	req := &model.AppointmentRequest{
		PatientID: 12,
		DoctorID:  34,
		DateTime:  1700000000,
		Reason:    "annual checkup",
		MultimediaContent: &model.MultimediaContent{
			ImageURL: strPtr("https://cdn.example/referral.png"),
		},
	}
	created, err := svc.ScheduleAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), created.ID)
	assert.Equal(t, uint64(12), created.PatientID)

	got, err := svc.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	require.NotNil(t, got.MultimediaContent)
	assert.Nil(t, got.MultimediaContent.VideoURL)

	// Mutating the request afterwards does not reach the stored record.
	*req.MultimediaContent.ImageURL = "changed"
	got, err = svc.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/referral.png", *got.MultimediaContent.ImageURL)
}

func TestScheduleAppointmentRequiresReason(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	_, err := svc.ScheduleAppointment(ctx, &model.AppointmentRequest{PatientID: 1})
	require.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, "Reason cannot be empty", err.Error())
	assert.Equal(t, uint64(0), st.IDs.Current())

	_, err = svc.UpdateAppointment(ctx, 1, &model.AppointmentRequest{})
	require.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, uint64(0), st.Appointments.Len())
}

func TestUpdateUnknownAppointmentWritesAndReportsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	req := &model.AppointmentRequest{PatientID: 5, DoctorID: 6, DateTime: 42, Reason: "follow-up"}
	_, err := svc.UpdateAppointment(ctx, 999, req)
	require.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Appointment with id=999 not found", err.Error())

	got, err := svc.GetAppointment(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, &model.Appointment{ID: 999, PatientID: 5, DoctorID: 6, DateTime: 42, Reason: "follow-up"}, got)

	// A second update of the same id now succeeds.
	req.Reason = "moved"
	updated, err := svc.UpdateAppointment(ctx, 999, req)
	require.NoError(t, err)
	assert.Equal(t, "moved", updated.Reason)
}

func TestUpdateAppointmentReplacesMultimedia(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.ScheduleAppointment(ctx, &model.AppointmentRequest{
		Reason:            "scan",
		MultimediaContent: &model.MultimediaContent{VideoURL: strPtr("v")},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateAppointment(ctx, created.ID, &model.AppointmentRequest{Reason: "scan"})
	require.NoError(t, err)
	assert.Nil(t, updated.MultimediaContent)

	got, err := svc.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MultimediaContent)
}

func TestDeleteAndListAppointments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, reason := range []string{"a", "b", "c"} {
		_, err := svc.ScheduleAppointment(ctx, &model.AppointmentRequest{Reason: reason})
		require.NoError(t, err)
	}
	require.NoError(t, svc.DeleteAppointment(ctx, 2))

	err := svc.DeleteAppointment(ctx, 2)
	require.True(t, apperrors.IsNotFound(err))

	_, err = svc.GetAppointment(ctx, 2)
	require.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "appointment with id=2 not found", err.Error())

	list, err := svc.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Reason)
	assert.Equal(t, "c", list[1].Reason)
	assert.Less(t, list[0].ID, list[1].ID)
}
