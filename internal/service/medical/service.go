package medical

import (
	"context"

	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/service"
	"github.com/jwalitptl/clinicstore/internal/store"
	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/messaging"
)

type MedicalRecordService interface {
	CreateMedicalRecord(ctx context.Context, req *model.MedicalRecordRequest) (*model.MedicalRecord, error)
	GetMedicalRecord(ctx context.Context, id uint64) (*model.MedicalRecord, error)
	UpdateMedicalRecord(ctx context.Context, id uint64, req *model.MedicalRecordRequest) (*model.MedicalRecord, error)
	DeleteMedicalRecord(ctx context.Context, id uint64) error
	ListMedicalRecords(ctx context.Context) ([]*model.MedicalRecord, error)
}

// Service manages medical records. Records carry no validation rules and the
// patient id is not checked for existence.
type Service struct {
	store     *store.Store
	publisher messaging.Publisher
	logger    *logger.Logger
}

func NewService(st *store.Store, pub messaging.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		publisher: pub,
		logger:    log,
	}
}

func (s *Service) CreateMedicalRecord(ctx context.Context, req *model.MedicalRecordRequest) (*model.MedicalRecord, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}

	record, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventMedicalRecordCreate, record)
	return record, nil
}

func (s *Service) create(ctx context.Context, req *model.MedicalRecordRequest) (*model.MedicalRecord, error) {
	s.store.Lock()
	defer s.store.Unlock()

	id, err := s.store.IDs.NextID(ctx)
	if err != nil {
		return nil, service.StoreError("allocate medical record id", err)
	}

	record := newRecord(id, req)
	if _, _, err := s.store.MedicalRecords.Insert(ctx, id, *record); err != nil {
		return nil, service.StoreError("store medical record", err)
	}

	s.logger.WithContext(ctx).Debug("medical record created", "id", id, "patient_id", req.PatientID)
	return record, nil
}

func (s *Service) GetMedicalRecord(ctx context.Context, id uint64) (*model.MedicalRecord, error) {
	s.store.Lock()
	defer s.store.Unlock()

	record, ok, err := s.store.MedicalRecords.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("get medical record", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("medical record with id=%d not found", id)
	}
	return &record, nil
}

func (s *Service) UpdateMedicalRecord(ctx context.Context, id uint64, req *model.MedicalRecordRequest) (*model.MedicalRecord, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}

	record, err := s.update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventMedicalRecordUpdate, record)
	return record, nil
}

func (s *Service) update(ctx context.Context, id uint64, req *model.MedicalRecordRequest) (*model.MedicalRecord, error) {
	s.store.Lock()
	defer s.store.Unlock()

	record := newRecord(id, req)
	_, existed, err := s.store.MedicalRecords.Insert(ctx, id, *record)
	if err != nil {
		return nil, service.StoreError("update medical record", err)
	}
	if !existed {
		s.logger.WithContext(ctx).Warn("update addressed unknown medical record, record was written", "id", id)
		return nil, apperrors.NotFoundf("Medical record with id=%d not found", id)
	}
	return record, nil
}

func (s *Service) DeleteMedicalRecord(ctx context.Context, id uint64) error {
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(ctx, service.EventMedicalRecordDelete, service.DeletedEvent{ID: id})
	return nil
}

func (s *Service) remove(ctx context.Context, id uint64) error {
	s.store.Lock()
	defer s.store.Unlock()

	_, ok, err := s.store.MedicalRecords.Remove(ctx, id)
	if err != nil {
		return service.StoreError("delete medical record", err)
	}
	if !ok {
		return apperrors.NotFoundf("Medical record with id=%d not found", id)
	}
	return nil
}

func (s *Service) ListMedicalRecords(ctx context.Context) ([]*model.MedicalRecord, error) {
	s.store.Lock()
	defer s.store.Unlock()

	entries, err := s.store.MedicalRecords.List(ctx)
	if err != nil {
		return nil, service.StoreError("list medical records", err)
	}

	records := make([]*model.MedicalRecord, 0, len(entries))
	for i := range entries {
		records = append(records, &entries[i].Value)
	}
	return records, nil
}

func newRecord(id uint64, req *model.MedicalRecordRequest) *model.MedicalRecord {
	return &model.MedicalRecord{
		ID:               id,
		PatientID:        req.PatientID,
		LabResults:       req.LabResults,
		TreatmentHistory: req.TreatmentHistory,
	}
}
