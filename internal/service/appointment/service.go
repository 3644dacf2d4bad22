package appointment

import (
	"context"

	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/service"
	"github.com/jwalitptl/clinicstore/internal/store"
	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/messaging"
	"github.com/jwalitptl/clinicstore/pkg/validator"
)

type AppointmentService interface {
	ScheduleAppointment(ctx context.Context, req *model.AppointmentRequest) (*model.Appointment, error)
	GetAppointment(ctx context.Context, id uint64) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, id uint64, req *model.AppointmentRequest) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, id uint64) error
	ListAppointments(ctx context.Context) ([]*model.Appointment, error)
}

// Service manages appointments. Patient and doctor ids are stored as given;
// neither is checked for existence.
type Service struct {
	store     *store.Store
	validator validator.Validator
	publisher messaging.Publisher
	logger    *logger.Logger
}

func NewService(st *store.Store, v validator.Validator, pub messaging.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		validator: v,
		publisher: pub,
		logger:    log,
	}
}

func (s *Service) ScheduleAppointment(ctx context.Context, req *model.AppointmentRequest) (*model.Appointment, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}
	if err := service.Validate(s.validator, req); err != nil {
		return nil, err
	}

	appointment, err := s.schedule(ctx, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventAppointmentCreate, appointment)
	return appointment, nil
}

func (s *Service) schedule(ctx context.Context, req *model.AppointmentRequest) (*model.Appointment, error) {
	s.store.Lock()
	defer s.store.Unlock()

	id, err := s.store.IDs.NextID(ctx)
	if err != nil {
		return nil, service.StoreError("allocate appointment id", err)
	}

	appointment := newAppointment(id, req)
	if _, _, err := s.store.Appointments.Insert(ctx, id, *appointment); err != nil {
		return nil, service.StoreError("store appointment", err)
	}

	s.logger.WithContext(ctx).Debug("appointment scheduled", "id", id, "patient_id", req.PatientID, "doctor_id", req.DoctorID)
	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uint64) (*model.Appointment, error) {
	s.store.Lock()
	defer s.store.Unlock()

	appointment, ok, err := s.store.Appointments.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("get appointment", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("appointment with id=%d not found", id)
	}
	return &appointment, nil
}

// UpdateAppointment replaces appointment id. An unknown id is reported as not
// found after the replacement has already been written.
func (s *Service) UpdateAppointment(ctx context.Context, id uint64, req *model.AppointmentRequest) (*model.Appointment, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}
	if err := service.Validate(s.validator, req); err != nil {
		return nil, err
	}

	appointment, err := s.update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventAppointmentUpdate, appointment)
	return appointment, nil
}

func (s *Service) update(ctx context.Context, id uint64, req *model.AppointmentRequest) (*model.Appointment, error) {
	s.store.Lock()
	defer s.store.Unlock()

	appointment := newAppointment(id, req)
	_, existed, err := s.store.Appointments.Insert(ctx, id, *appointment)
	if err != nil {
		return nil, service.StoreError("update appointment", err)
	}
	if !existed {
		s.logger.WithContext(ctx).Warn("update addressed unknown appointment, record was written", "id", id)
		return nil, apperrors.NotFoundf("Appointment with id=%d not found", id)
	}
	return appointment, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uint64) error {
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(ctx, service.EventAppointmentDelete, service.DeletedEvent{ID: id})
	return nil
}

func (s *Service) remove(ctx context.Context, id uint64) error {
	s.store.Lock()
	defer s.store.Unlock()

	_, ok, err := s.store.Appointments.Remove(ctx, id)
	if err != nil {
		return service.StoreError("delete appointment", err)
	}
	if !ok {
		return apperrors.NotFoundf("Appointment with id=%d not found", id)
	}
	return nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]*model.Appointment, error) {
	s.store.Lock()
	defer s.store.Unlock()

	entries, err := s.store.Appointments.List(ctx)
	if err != nil {
		return nil, service.StoreError("list appointments", err)
	}

	appointments := make([]*model.Appointment, 0, len(entries))
	for i := range entries {
		appointments = append(appointments, &entries[i].Value)
	}
	return appointments, nil
}

func newAppointment(id uint64, req *model.AppointmentRequest) *model.Appointment {
	return &model.Appointment{
		ID:                id,
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		DateTime:          req.DateTime,
		Reason:            req.Reason,
		MultimediaContent: req.MultimediaContent.Clone(),
	}
}
