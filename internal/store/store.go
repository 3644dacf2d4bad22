// Package store bundles the durable memory space with the id generator and
// the four record collections. Partition indices are part of the on-disk
// format and must never be renumbered or reused.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jwalitptl/clinicstore/config"
	"github.com/jwalitptl/clinicstore/internal/codec"
	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/repository"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
	"github.com/jwalitptl/clinicstore/pkg/stable"
)

const (
	PartitionIDs            stable.PartitionID = 0
	PartitionPatients       stable.PartitionID = 1
	PartitionAppointments   stable.PartitionID = 2
	PartitionMessages       stable.PartitionID = 3
	PartitionMedicalRecords stable.PartitionID = 4
)

// Collection names used in logs, metrics and events.
const (
	CollectionPatients       = "patients"
	CollectionAppointments   = "appointments"
	CollectionMessages       = "messages"
	CollectionMedicalRecords = "medical_records"
)

// Store owns all persistent state. Services hold its mutex for the whole of
// each operation, so operations apply one at a time in the order they
// acquire it.
type Store struct {
	sync.Mutex

	manager *stable.Manager
	closed  bool

	IDs            repository.IDGenerator
	Patients       repository.KeyedStore[model.Patient]
	Appointments   repository.KeyedStore[model.Appointment]
	Messages       repository.KeyedStore[model.Message]
	MedicalRecords repository.KeyedStore[model.MedicalRecord]
}

// New loads or initializes every collection in mem.
func New(mem stable.Memory, opts stable.Options, log *logger.Logger, m *metrics.Metrics) (*Store, error) {
	manager, err := stable.NewManager(mem, opts)
	if err != nil {
		return nil, err
	}

	cell, err := stable.InitCell(manager.Partition(PartitionIDs), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open id generator: %w", err)
	}

	s := &Store{
		manager: manager,
		IDs:     &idGenerator{cell: cell, metrics: m},
	}

	if s.Patients, err = openCollection[model.Patient](manager, PartitionPatients, CollectionPatients, codec.Patient{}, log, m); err != nil {
		return nil, err
	}
	if s.Appointments, err = openCollection[model.Appointment](manager, PartitionAppointments, CollectionAppointments, codec.Appointment{}, log, m); err != nil {
		return nil, err
	}
	if s.Messages, err = openCollection[model.Message](manager, PartitionMessages, CollectionMessages, codec.Message{}, log, m); err != nil {
		return nil, err
	}
	if s.MedicalRecords, err = openCollection[model.MedicalRecord](manager, PartitionMedicalRecords, CollectionMedicalRecords, codec.MedicalRecord{}, log, m); err != nil {
		return nil, err
	}

	log.Info("store opened",
		"bucket_size", manager.BucketSize(),
		"buckets", manager.AllocatedBuckets(),
		"durability", manager.Durability().String(),
		"next_id", s.IDs.Current()+1,
	)
	return s, nil
}

// NewInMemory returns a Store backed by a fresh in-process buffer.
func NewInMemory(log *logger.Logger, m *metrics.Metrics) (*Store, error) {
	return New(stable.NewBuffer(), stable.DefaultOptions(), log, m)
}

// Open opens the store described by cfg. An empty path selects an in-memory
// space that is lost on exit.
func Open(cfg config.StorageConfig, log *logger.Logger, m *metrics.Metrics) (*Store, error) {
	opts, err := cfg.StableOptions()
	if err != nil {
		return nil, err
	}

	if cfg.Path == "" {
		log.Warn("storage.path is empty, records will not survive a restart")
		return New(stable.NewBuffer(), opts, log, m)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	mem, err := stable.OpenFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage file %s: %w", cfg.Path, err)
	}
	log.Info("opening storage", "path", cfg.Path, "bucket_size", opts.BucketSize, "durability", opts.Durability.String())

	s, err := New(mem, opts, log, m)
	if err != nil {
		mem.Close()
		return nil, err
	}
	return s, nil
}

// Sync flushes buffered writes to the memory space.
func (s *Store) Sync() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return stable.ErrClosed
	}
	return s.manager.Sync()
}

// Durability reports the mode the store was opened with.
func (s *Store) Durability() stable.Durability {
	return s.manager.Durability()
}

// Ping reports whether the store still accepts operations.
func (s *Store) Ping(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return stable.ErrClosed
	}
	return ctx.Err()
}

// Close flushes and releases the memory space.
func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.manager.Close()
}
