package message

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

type MessageService interface {
	SendMessage(ctx context.Context, req *model.MessageRequest) (*model.Message, error)
	SendReminderToPatient(ctx context.Context, patientID uint64, req *model.ReminderRequest) (*model.Message, error)
	GetMessage(ctx context.Context, id uint64) (*model.Message, error)
	UpdateMessage(ctx context.Context, id uint64, req *model.MessageRequest) (*model.Message, error)
	DeleteMessage(ctx context.Context, id uint64) error
	ListMessages(ctx context.Context) ([]*model.Message, error)
}

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

func (s *Service) SendMessage(ctx context.Context, req *model.MessageRequest) (*model.Message, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}
	if err := service.Validate(s.validator, req); err != nil {
		return nil, err
	}

	msg, err := s.send(ctx, req.SenderID, req.ReceiverID, req.Content, req.MultimediaContent)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventMessageCreate, msg)
	return msg, nil
}

// SendReminderToPatient sends a system message to an existing patient. This
// is the only operation that checks another collection before writing.
func (s *Service) SendReminderToPatient(ctx context.Context, patientID uint64, req *model.ReminderRequest) (*model.Message, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}
	if err := service.Validate(s.validator, req); err != nil {
		return nil, err
	}

	msg, err := s.remind(ctx, patientID, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventReminderSent, msg)
	return msg, nil
}

func (s *Service) remind(ctx context.Context, patientID uint64, req *model.ReminderRequest) (*model.Message, error) {
	s.store.Lock()
	defer s.store.Unlock()

	_, ok, err := s.store.Patients.Get(ctx, patientID)
	if err != nil {
		return nil, service.StoreError("get patient", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("Patient with id=%d not found", patientID)
	}
	return s.insertNew(ctx, model.SystemSenderID, patientID, req.Content, req.MultimediaContent)
}

func (s *Service) send(ctx context.Context, senderID, receiverID uint64, content string, mm *model.MultimediaContent) (*model.Message, error) {
	s.store.Lock()
	defer s.store.Unlock()
	return s.insertNew(ctx, senderID, receiverID, content, mm)
}

// insertNew allocates an id and stores a new message. Caller holds the store lock.
func (s *Service) insertNew(ctx context.Context, senderID, receiverID uint64, content string, mm *model.MultimediaContent) (*model.Message, error) {
	id, err := s.store.IDs.NextID(ctx)
	if err != nil {
		return nil, service.StoreError("allocate message id", err)
	}

	msg := &model.Message{
		ID:                id,
		SenderID:          senderID,
		ReceiverID:        receiverID,
		Content:           content,
		MultimediaContent: mm.Clone(),
	}
	if _, _, err := s.store.Messages.Insert(ctx, id, *msg); err != nil {
		return nil, service.StoreError("store message", err)
	}

	s.logger.WithContext(ctx).Debug("message sent", "id", id, "sender_id", senderID, "receiver_id", receiverID)
	return msg, nil
}

func (s *Service) GetMessage(ctx context.Context, id uint64) (*model.Message, error) {
	s.store.Lock()
	defer s.store.Unlock()

	msg, ok, err := s.store.Messages.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("get message", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("message with id=%d not found", id)
	}
	return &msg, nil
}

// UpdateMessage replaces message id. An unknown id is reported as not found
// after the replacement has already been written.
func (s *Service) UpdateMessage(ctx context.Context, id uint64, req *model.MessageRequest) (*model.Message, error) {
	if req == nil {
		return nil, service.ErrMissingRequest
	}
	if err := service.Validate(s.validator, req); err != nil {
		return nil, err
	}

	msg, err := s.update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, service.EventMessageUpdate, msg)
	return msg, nil
}

func (s *Service) update(ctx context.Context, id uint64, req *model.MessageRequest) (*model.Message, error) {
	s.store.Lock()
	defer s.store.Unlock()

	msg := &model.Message{
		ID:                id,
		SenderID:          req.SenderID,
		ReceiverID:        req.ReceiverID,
		Content:           req.Content,
		MultimediaContent: req.MultimediaContent.Clone(),
	}
	_, existed, err := s.store.Messages.Insert(ctx, id, *msg)
	if err != nil {
		return nil, service.StoreError("update message", err)
	}
	if !existed {
		s.logger.WithContext(ctx).Warn("update addressed unknown message, record was written", "id", id)
		return nil, apperrors.NotFoundf("Message with id=%d not found", id)
	}
	return msg, nil
}

func (s *Service) DeleteMessage(ctx context.Context, id uint64) error {
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(ctx, service.EventMessageDelete, service.DeletedEvent{ID: id})
	return nil
}

func (s *Service) remove(ctx context.Context, id uint64) error {
	s.store.Lock()
	defer s.store.Unlock()

	_, ok, err := s.store.Messages.Remove(ctx, id)
	if err != nil {
		return service.StoreError("delete message", err)
	}
	if !ok {
		return apperrors.NotFoundf("Message with id=%d not found", id)
	}
	return nil
}

func (s *Service) ListMessages(ctx context.Context) ([]*model.Message, error) {
	s.store.Lock()
	defer s.store.Unlock()

	entries, err := s.store.Messages.List(ctx)
	if err != nil {
		return nil, service.StoreError("list messages", err)
	}

	messages := make([]*model.Message, 0, len(entries))
	for i := range entries {
		messages = append(messages, &entries[i].Value)
	}
	return messages, nil
}
