// Package movement implements the read and write operations on facilities,
// movement lists and movement entries. Every mutation is authorized by the
// permission gate and runs in one store transaction together with its
// history record.
package movement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
)

// Recorder receives counters about mutations. The metrics package provides
// the Prometheus implementation.
type Recorder interface {
	MutationApplied(kind domain.EntityKind, op permission.Operation)
	MutationDenied(kind domain.EntityKind, op permission.Operation)
	HistoryAppended(kind domain.EntityKind)
}

type noopRecorder struct{}

func (noopRecorder) MutationApplied(domain.EntityKind, permission.Operation) {}
func (noopRecorder) MutationDenied(domain.EntityKind, permission.Operation)  {}
func (noopRecorder) HistoryAppended(domain.EntityKind)                       {}

// Service coordinates the store, the permission gate and the audit log.
type Service struct {
	store           repository.Store
	gate            *permission.Gate
	logger          *zap.Logger
	recorder        Recorder
	now             func() time.Time
	pageSize        int
	historyPageSize int
	suggestionLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPageSize sets the default page size of listings.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithHistoryPageSize sets how many history records are read per round trip.
func WithHistoryPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyPageSize = n
		}
	}
}

// NewService creates a new movement service
func NewService(store repository.Store, gate *permission.Gate, opts ...Option) *Service {
	s := &Service{
		store:           store,
		gate:            gate,
		logger:          zap.NewNop(),
		recorder:        noopRecorder{},
		now:             func() time.Time { return time.Now().UTC() },
		pageSize:        domain.DefaultPageSize,
		historyPageSize: 50,
		suggestionLimit: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gate exposes the permission gate for callers that render effective permissions.
func (s *Service) Gate() *permission.Gate {
	return s.gate
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// authorize wraps a gate decision with logging and metrics.
func (s *Service) authorize(kind domain.EntityKind, op permission.Operation, actor *permission.Actor, err error) error {
	if err == nil {
		return nil
	}
	s.recorder.MutationDenied(kind, op)
	fields := []zap.Field{zap.String("entity", string(kind)), zap.String("operation", string(op))}
	if actor != nil {
		fields = append(fields, zap.Int64("actor_id", actor.UserID))
	}
	s.logger.Info("mutation rejected", append(fields, zap.Error(err))...)
	return err
}

func (s *Service) applied(kind domain.EntityKind, op permission.Operation, id int64, actor *permission.Actor) {
	s.recorder.MutationApplied(kind, op)
	s.logger.Info("mutation applied",
		zap.String("entity", string(kind)),
		zap.String("operation", string(op)),
		zap.Int64("id", id),
		zap.Int64("actor_id", actor.UserID),
	)
}

// resolveList loads a list and checks it belongs to the facility with slug.
func resolveList(ctx context.Context, store repository.Store, slug string, listID int64, forUpdate bool) (domain.Facility, domain.MovementList, error) {
	facility, err := store.Facilities().GetBySlug(ctx, slug)
	if err != nil {
		return domain.Facility{}, domain.MovementList{}, err
	}
	var list domain.MovementList
	if forUpdate {
		list, err = store.Lists().GetForUpdate(ctx, listID)
	} else {
		list, err = store.Lists().GetByID(ctx, listID)
	}
	if err != nil {
		return domain.Facility{}, domain.MovementList{}, err
	}
	if list.FacilityID != facility.ID {
		return domain.Facility{}, domain.MovementList{}, domain.NewNotFound("movement list", listID)
	}
	return facility, list, nil
}

// resolveEntry loads an entry and checks it belongs to the list.
func resolveEntry(ctx context.Context, store repository.Store, list domain.MovementList, entryID int64, forUpdate bool) (domain.EntryDetail, error) {
	var (
		entry domain.EntryDetail
		err   error
	)
	if forUpdate {
		entry, err = store.Entries().GetForUpdate(ctx, entryID)
	} else {
		entry, err = store.Entries().GetByID(ctx, entryID)
	}
	if err != nil {
		return domain.EntryDetail{}, err
	}
	if entry.ListID != list.ID {
		return domain.EntryDetail{}, domain.NewNotFound("movement entry", entryID)
	}
	return entry, nil
}
