package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// DutyService maintains the supervision roster of a half-year.
type DutyService struct {
	snapshots  *SnapshotService
	metrics    *MetricsService
	weights    DutyWeights
	schoolDays []int
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewDutyService constructs a DutyService. schoolDays are the ISO weekdays solved when a
// request names none.
func NewDutyService(snapshots *SnapshotService, metrics *MetricsService, weights DutyWeights, schoolDays []int, validate *validator.Validate, logger *zap.Logger) *DutyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(schoolDays) == 0 {
		schoolDays = []int{1, 2, 3, 4, 5}
	}
	return &DutyService{
		snapshots:  snapshots,
		metrics:    metrics,
		weights:    weights,
		schoolDays: schoolDays,
		validator:  validate,
		logger:     logger,
	}
}

// Roster returns the duty records ordered by weekday, shift and zone display order.
func (s *DutyService) Roster(ctx context.Context, hy models.HalfYear) ([]models.DutyRecord, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	return sortedRoster(store), nil
}

// Solve rebuilds the roster for the requested weekdays. Records of other weekdays are kept.
func (s *DutyService) Solve(ctx context.Context, hy models.HalfYear, req dto.DutySolveRequest) (models.DutyRoster, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.DutyRoster{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duty solve payload")
	}
	weekdays := uniqueWeekdays(req.Weekdays)
	if len(weekdays) == 0 {
		weekdays = uniqueWeekdays(s.schoolDays)
	}

	var roster models.DutyRoster
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		roster = SolveDuty(store, weekdays, s.weights)
		solved := make(map[int]struct{}, len(weekdays))
		for _, d := range weekdays {
			solved[d] = struct{}{}
		}
		records := make([]models.DutyRecord, 0, len(store.DutyRecords())+len(roster.Records))
		for _, r := range store.DutyRecords() {
			if _, replaced := solved[r.Weekday]; !replaced {
				records = append(records, r)
			}
		}
		records = append(records, roster.Records...)
		next, err := store.WithDutyRecords(records)
		if err != nil {
			return nil, 0, err
		}
		return next, CollectionDutyRecords, nil
	})
	if err != nil {
		return models.DutyRoster{}, err
	}

	s.metrics.RecordDutySolve(len(roster.Unassigned))
	s.logger.Info("duty roster solved",
		zap.String("half_year", string(hy)),
		zap.Ints("weekdays", weekdays),
		zap.Int("assigned", len(roster.Records)),
		zap.Int("unassigned", len(roster.Unassigned)))
	return roster, nil
}

// Conflicts flags teachers rostered in two zones at the same weekday and shift.
func (s *DutyService) Conflicts(ctx context.Context, hy models.HalfYear) ([]models.DutyConflict, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	return DetectDutyConflicts(store.DutyRecords()), nil
}

// Clear removes the records selected by query; an empty query clears the whole roster.
func (s *DutyService) Clear(ctx context.Context, hy models.HalfYear, query dto.DutyClearQuery) (int, error) {
	if err := s.validator.Struct(query); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duty filter")
	}
	filter := models.DutyFilter{
		Weekday: query.Weekday,
		ZoneID:  strings.TrimSpace(query.ZoneID),
		Shift:   models.Shift(strings.ToUpper(query.Shift)),
	}
	removed := 0
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		if filter.ZoneID != "" {
			if _, err := store.Zone(filter.ZoneID); err != nil {
				return nil, 0, err
			}
		}
		next := store.WithoutDutyRecords(filter)
		removed = len(store.DutyRecords()) - len(next.DutyRecords())
		if removed == 0 {
			return store, 0, nil
		}
		return next, CollectionDutyRecords, nil
	})
	return removed, err
}

// Assign sets the teacher of one zone slot. Supervising another zone at the same time is
// allowed and reported as an advisory.
func (s *DutyService) Assign(ctx context.Context, hy models.HalfYear, req dto.DutyAssignRequest) (models.DutyRecord, []models.Advisory, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.DutyRecord{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duty assignment")
	}
	record := models.DutyRecord{
		ZoneID:    strings.TrimSpace(req.ZoneID),
		Weekday:   req.Weekday,
		Shift:     models.Shift(strings.ToUpper(req.Shift)),
		TeacherID: strings.TrimSpace(req.TeacherID),
	}
	var advisories []models.Advisory
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		records := make([]models.DutyRecord, 0, len(store.DutyRecords())+1)
		for _, r := range store.DutyRecords() {
			if r.ZoneID == record.ZoneID && r.Weekday == record.Weekday && r.Shift == record.Shift {
				record.ID = r.ID
				continue
			}
			records = append(records, r)
		}
		next, err := store.WithDutyRecords(append(records, record))
		if err != nil {
			return nil, 0, err
		}
		for _, r := range next.DutyRecords() {
			if r.ZoneID == record.ZoneID && r.Weekday == record.Weekday && r.Shift == record.Shift {
				record = r
			}
		}
		for _, c := range DetectDutyConflicts(next.DutyRecords()) {
			if c.TeacherID == record.TeacherID && c.Weekday == record.Weekday && c.Shift == record.Shift {
				advisories = append(advisories, models.Advisory{
					Code: models.AdvisoryDutyDoubleBooked,
					Message: fmt.Sprintf("%s supervises %s on weekday %d", teacherName(next, c.TeacherID),
						strings.Join(zoneNames(next, c.ZoneIDs), " and "), c.Weekday),
				})
			}
		}
		return next, CollectionDutyRecords, nil
	})
	if err != nil {
		return models.DutyRecord{}, nil, err
	}
	return record, advisories, nil
}

func sortedRoster(store *TimetableStore) []models.DutyRecord {
	order := make(map[string]int)
	for i, z := range store.Zones() {
		order[z.ID] = i
	}
	records := append([]models.DutyRecord(nil), store.DutyRecords()...)
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		return order[a.ZoneID] < order[b.ZoneID]
	})
	return records
}

func zoneNames(store *TimetableStore, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if z, err := store.Zone(id); err == nil {
			out = append(out, z.Name)
			continue
		}
		out = append(out, id)
	}
	return out
}

func uniqueWeekdays(days []int) []int {
	seen := make(map[int]struct{}, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
