package patient

import (
	"context"

	"github.com/jwalitptl/clinicstore/config"
	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/service"
	"github.com/jwalitptl/clinicstore/internal/store"
	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/messaging"
	"github.com/jwalitptl/clinicstore/pkg/validator"
)

type PatientService interface {
	RegisterPatient(ctx context.Context, req *model.PatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uint64) (*model.Patient, error)
	UpdatePatient(ctx context.Context, id uint64, req *model.PatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id uint64) error
	ListPatients(ctx context.Context) ([]*model.Patient, error)
}

type Service struct {
	store         *store.Store
	validator     validator.Validator
	publisher     messaging.Publisher
	logger        *logger.Logger
	strictContact bool
}

func NewService(st *store.Store, v validator.Validator, pub messaging.Publisher, log *logger.Logger, cfg config.ValidationConfig) *Service {
	return &Service{
		store:         st,
		validator:     v,
		publisher:     pub,
		logger:        log,
		strictContact: cfg.StrictPatientContact,
	}
}

func (s *Service) RegisterPatient(ctx context.Context, req *model.PatientRequest) (*model.Patient, error) {
	if err := s.validatePatient(req); err != nil {
		return nil, err
	}

	patient, err := s.register(ctx, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventPatientCreate, patient)
	return patient, nil
}

func (s *Service) register(ctx context.Context, req *model.PatientRequest) (*model.Patient, error) {
	s.store.Lock()
	defer s.store.Unlock()

	id, err := s.store.IDs.NextID(ctx)
	if err != nil {
		return nil, service.StoreError("allocate patient id", err)
	}

	patient := &model.Patient{
		ID:             id,
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		MedicalHistory: req.MedicalHistory,
	}
	if _, _, err := s.store.Patients.Insert(ctx, id, *patient); err != nil {
		return nil, service.StoreError("store patient", err)
	}

	s.logger.WithContext(ctx).Debug("patient registered", "id", id)
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uint64) (*model.Patient, error) {
	s.store.Lock()
	defer s.store.Unlock()

	patient, ok, err := s.store.Patients.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("get patient", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("patient with id=%d not found", id)
	}
	return &patient, nil
}

// UpdatePatient replaces every field of patient id. The record is written
// before its previous existence is known, so an unknown id is reported as
// not found yet still holds the new record afterwards.
func (s *Service) UpdatePatient(ctx context.Context, id uint64, req *model.PatientRequest) (*model.Patient, error) {
	if err := s.validatePatient(req); err != nil {
		return nil, err
	}

	patient, err := s.update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventPatientUpdate, patient)
	return patient, nil
}

func (s *Service) update(ctx context.Context, id uint64, req *model.PatientRequest) (*model.Patient, error) {
	s.store.Lock()
	defer s.store.Unlock()

	patient := &model.Patient{
		ID:             id,
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		MedicalHistory: req.MedicalHistory,
	}
	_, existed, err := s.store.Patients.Insert(ctx, id, *patient)
	if err != nil {
		return nil, service.StoreError("update patient", err)
	}
	if !existed {
		s.logger.WithContext(ctx).Warn("update addressed unknown patient, record was written", "id", id)
		return nil, apperrors.NotFoundf("Patient with id=%d not found", id)
	}
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uint64) error {
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(ctx, service.EventPatientDelete, service.DeletedEvent{ID: id})
	return nil
}

func (s *Service) remove(ctx context.Context, id uint64) error {
	s.store.Lock()
	defer s.store.Unlock()

	_, ok, err := s.store.Patients.Remove(ctx, id)
	if err != nil {
		return service.StoreError("delete patient", err)
	}
	if !ok {
		return apperrors.NotFoundf("Patient with id=%d not found", id)
	}
	return nil
}

func (s *Service) ListPatients(ctx context.Context) ([]*model.Patient, error) {
	s.store.Lock()
	defer s.store.Unlock()

	entries, err := s.store.Patients.List(ctx)
	if err != nil {
		return nil, service.StoreError("list patients", err)
	}

	patients := make([]*model.Patient, 0, len(entries))
	for i := range entries {
		patients = append(patients, &entries[i].Value)
	}
	return patients, nil
}

func (s *Service) validatePatient(req *model.PatientRequest) error {
	if req == nil {
		return service.ErrMissingRequest
	}
	if err := service.Validate(s.validator, req); err != nil {
		return err
	}
	if s.strictContact {
		if err := s.validator.ValidateField("contact_details", req.ContactDetails, "required"); err != nil {
			return apperrors.InvalidInput("Contact details cannot be empty", nil)
		}
	}
	return nil
}
