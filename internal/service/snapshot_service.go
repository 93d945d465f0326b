package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

type snapshotProvider interface {
	Load(ctx context.Context, hy models.HalfYear) (models.Snapshot, error)
}

// Collection flags the snapshot collections a mutation replaced.
type Collection uint8

const (
	CollectionTeachers Collection = 1 << iota
	CollectionLessons
	CollectionSubstitutions
	CollectionDutyRecords

	collectionsAll = CollectionTeachers | CollectionLessons | CollectionSubstitutions | CollectionDutyRecords
)

// Mutation derives the next store from the current one.
type Mutation func(store *TimetableStore) (*TimetableStore, Collection, error)

// SnapshotService owns the in-memory store of each half-year. Reads fall through memory,
// the Redis cache and finally the provider. Writes are serialised, recorded in the undo
// history and handed to the sink as a delta.
type SnapshotService struct {
	provider snapshotProvider
	sink     snapshotSink
	cache    *CacheService
	logger   *zap.Logger
	depth    int

	mu      sync.Mutex
	stores  map[models.HalfYear]*TimetableStore
	history map[models.HalfYear]*SnapshotHistory
}

// NewSnapshotService constructs a SnapshotService.
func NewSnapshotService(provider snapshotProvider, sink snapshotSink, cache *CacheService, historyDepth int, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		provider: provider,
		sink:     sink,
		cache:    cache,
		logger:   logger,
		depth:    historyDepth,
		stores:   make(map[models.HalfYear]*TimetableStore),
		history:  make(map[models.HalfYear]*SnapshotHistory),
	}
}

// Store returns the current store of hy.
func (s *SnapshotService) Store(ctx context.Context, hy models.HalfYear) (*TimetableStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, hy)
}

// load must be called with s.mu held.
func (s *SnapshotService) load(ctx context.Context, hy models.HalfYear) (*TimetableStore, error) {
	if store, ok := s.stores[hy]; ok {
		return store, nil
	}
	if snap, hit, err := s.cache.GetSnapshot(ctx, hy); err == nil && hit && snap.HalfYear == hy {
		store := NewTimetableStore(snap)
		s.stores[hy] = store
		return store, nil
	}
	snap, err := s.provider.Load(ctx, hy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load timetable for "+string(hy))
	}
	snap.HalfYear = hy
	store := NewTimetableStore(snap)
	s.stores[hy] = store
	_ = s.cache.SetSnapshot(ctx, snap)
	return store, nil
}

// Update applies fn to the current store of hy and persists the replaced collections.
// Nothing is stored when fn fails.
func (s *SnapshotService) Update(ctx context.Context, hy models.HalfYear, fn Mutation) (*TimetableStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, hy)
	if err != nil {
		return nil, err
	}
	next, changed, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil || next == current || changed == 0 {
		return current, nil
	}
	store, err := s.commit(ctx, hy, next.Snapshot(), current.Snapshot().Version, changed)
	if err != nil {
		return nil, err
	}
	s.historyFor(hy).Push(current.Snapshot())
	return store, nil
}

// Undo restores the snapshot before the latest write.
func (s *SnapshotService) Undo(ctx context.Context, hy models.HalfYear) (*TimetableStore, error) {
	return s.travel(ctx, hy, (*SnapshotHistory).Undo, "nothing to undo")
}

// Redo reapplies the latest undone write.
func (s *SnapshotService) Redo(ctx context.Context, hy models.HalfYear) (*TimetableStore, error) {
	return s.travel(ctx, hy, (*SnapshotHistory).Redo, "nothing to redo")
}

func (s *SnapshotService) travel(ctx context.Context, hy models.HalfYear, step func(*SnapshotHistory, models.Snapshot) (models.Snapshot, bool), empty string) (*TimetableStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, hy)
	if err != nil {
		return nil, err
	}
	history := s.historyFor(hy)
	saved := history.mark()
	snap, ok := step(history, current.Snapshot())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, empty)
	}
	store, err := s.commit(ctx, hy, snap, current.Snapshot().Version, collectionsAll)
	if err != nil {
		history.rollback(saved)
		return nil, err
	}
	return store, nil
}

// HistoryDepths reports available undo and redo steps for hy.
func (s *SnapshotService) HistoryDepths(hy models.HalfYear) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyFor(hy).Depths()
}

// Invalidate forgets the in-memory and cached store of hy so the next read hits the provider.
func (s *SnapshotService) Invalidate(ctx context.Context, hy models.HalfYear) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, hy)
	_ = s.cache.Invalidate(ctx, hy)
}

// commit must be called with s.mu held.
func (s *SnapshotService) commit(ctx context.Context, hy models.HalfYear, snap models.Snapshot, prevVersion int64, changed Collection) (*TimetableStore, error) {
	snap.HalfYear = hy
	snap.Version = prevVersion + 1
	delta := deltaFor(snap, changed)
	if err := s.sink.Apply(ctx, delta); err != nil {
		logger.WithContext(ctx, s.logger).Error("snapshot sink rejected delta",
			zap.String("half_year", string(hy)), zap.Int64("version", snap.Version), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable changes")
	}
	store := NewTimetableStore(snap)
	s.stores[hy] = store
	_ = s.cache.SetSnapshot(ctx, snap)
	return store, nil
}

func (s *SnapshotService) historyFor(hy models.HalfYear) *SnapshotHistory {
	h, ok := s.history[hy]
	if !ok {
		h = NewSnapshotHistory(s.depth)
		s.history[hy] = h
	}
	return h
}

func deltaFor(snap models.Snapshot, changed Collection) models.SnapshotDelta {
	delta := models.SnapshotDelta{HalfYear: snap.HalfYear, Version: snap.Version}
	if changed&CollectionTeachers != 0 {
		teachers := snap.Teachers
		delta.Teachers = &teachers
	}
	if changed&CollectionLessons != 0 {
		lessons := snap.Lessons
		delta.Lessons = &lessons
	}
	if changed&CollectionSubstitutions != 0 {
		subs := snap.Substitutions
		delta.Substitutions = &subs
	}
	if changed&CollectionDutyRecords != 0 {
		records := snap.DutyRecords
		delta.DutyRecords = &records
	}
	return delta
}
