package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

type substitutionNotifier interface {
	NotifySubstitution(ctx context.Context, store *TimetableStore, sub models.Substitution)
}

// SubstitutionService resolves uncovered lessons for single dates.
type SubstitutionService struct {
	snapshots *SnapshotService
	notifier  substitutionNotifier
	metrics   *MetricsService
	weights   RankWeights
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubstitutionService constructs a SubstitutionService. A nil notifier disables delivery.
func NewSubstitutionService(snapshots *SnapshotService, notifier substitutionNotifier, metrics *MetricsService, weights RankWeights, validate *validator.Validate, logger *zap.Logger) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionService{
		snapshots: snapshots,
		notifier:  notifier,
		metrics:   metrics,
		weights:   weights,
		validator: validate,
		logger:    logger,
	}
}

// Candidates ranks the possible substitutes for a lesson on a date.
func (s *SubstitutionService) Candidates(ctx context.Context, hy models.HalfYear, query dto.CandidateQuery) ([]models.RankedCandidate, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid candidate query")
	}
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	return RankCandidates(store, RankRequest{
		LessonID: query.LessonID,
		Date:     query.Date,
		Filter:   query.Query,
		Declined: query.Declined,
	}, s.weights)
}

// Assign stores the outcome of an uncovered lesson. Picking a teacher who is already
// teaching at that time needs ConfirmMerger and marks the substitution as a merger.
// Picking the lesson's own teacher only moves the lesson to another room.
func (s *SubstitutionService) Assign(ctx context.Context, hy models.HalfYear, req dto.AssignSubstitutionRequest) (dto.SubstitutionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubstitutionResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution payload")
	}

	var (
		stored models.Substitution
		result *TimetableStore
	)
	store, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		lesson, err := store.Lesson(req.LessonID)
		if err != nil {
			return nil, 0, err
		}
		sub := models.Substitution{
			Date:               req.Date,
			LessonID:           lesson.ID,
			ReplacementRoomID:  normalizeOptional(req.RoomID),
			Reason:             normalizeOptional(req.Reason),
			DeclinedTeacherIDs: uniqueSorted(req.Declined),
		}
		switch models.ReplacementKind(req.Outcome) {
		case models.ReplacementConducted:
			sub.ReplacementOutcome = models.Conducted()
		case models.ReplacementCancelled:
			sub.ReplacementOutcome = models.Cancelled()
		default:
			teacherID := strings.TrimSpace(*req.TeacherID)
			teacher, err := store.Teacher(teacherID)
			if err != nil {
				return nil, 0, err
			}
			sub.ReplacementOutcome = models.ReplaceWithTeacher(teacher.ID)
			if teacher.ID == lesson.TeacherID {
				if sub.ReplacementRoomID == nil || *sub.ReplacementRoomID == lesson.Room() {
					return nil, 0, appErrors.Cloned(appErrors.ErrValidation,
						"%s already teaches lesson %s, choose a different room to move it", teacher.Name, lesson.ID)
				}
				break
			}
			if _, busy := busyTeachers(store, lesson, req.Date)[teacher.ID]; busy {
				if !req.ConfirmMerger {
					return nil, 0, appErrors.Cloned(appErrors.ErrConfirmationRequired,
						"%s is already teaching in period %d on %s, confirm the merger", teacher.Name, lesson.Period, req.Date)
				}
				sub.Merger = true
			}
		}
		next, saved, err := store.WithSubstitution(sub)
		if err != nil {
			return nil, 0, err
		}
		stored = saved
		result = next
		return next, CollectionSubstitutions, nil
	})
	if err != nil {
		return dto.SubstitutionResponse{}, err
	}
	if result == nil {
		result = store
	}

	summary, _ := FormatSubstitutionSummary(result, stored)
	s.metrics.RecordSubstitutions(stored)
	s.notify(ctx, result, stored)
	logger.WithContext(ctx, s.logger).Info("substitution assigned",
		zap.String("half_year", string(hy)),
		zap.String("date", stored.Date),
		zap.String("lesson_id", stored.LessonID),
		zap.String("kind", string(stored.Kind)),
		zap.Bool("merger", stored.Merger))

	return dto.SubstitutionResponse{
		Substitution: stored,
		Summary:      summary,
		Advisories:   SubstitutionAdvisories(result, stored),
	}, nil
}

// Swap exchanges the content of two lessons of one teacher on a date. Both records are
// written together or not at all.
func (s *SubstitutionService) Swap(ctx context.Context, hy models.HalfYear, req dto.SwapRequest) (dto.SwapResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SwapResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap payload")
	}
	var (
		pair   []models.Substitution
		result *TimetableStore
	)
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		planned, err := PlanSwap(store, SwapPlan{
			Date:           req.Date,
			SourceLessonID: req.SourceLessonID,
			TargetLessonID: req.TargetLessonID,
			KeepOwnRooms:   req.KeepOwnRooms,
			SourceRoom:     normalizeOptional(req.SourceRoomID),
			Reason:         normalizeOptional(req.Reason),
		})
		if err != nil {
			return nil, 0, err
		}
		next, saved, err := store.WithSubstitutions(planned[:])
		if err != nil {
			return nil, 0, err
		}
		pair = saved
		result = next
		return next, CollectionSubstitutions, nil
	})
	if err != nil {
		return dto.SwapResponse{}, err
	}

	s.metrics.RecordSwap()
	s.metrics.RecordSubstitutions(pair...)
	var advisories []models.Advisory
	for _, sub := range pair {
		advisories = append(advisories, SubstitutionAdvisories(result, sub)...)
	}
	// both halves concern the same teacher, one message covers the pair
	if len(pair) > 0 {
		s.notify(ctx, result, pair[0])
	}
	return dto.SwapResponse{Substitutions: pair, Advisories: advisories}, nil
}

// Delete removes the substitution of a lesson on a date.
func (s *SubstitutionService) Delete(ctx context.Context, hy models.HalfYear, date, lessonID string) error {
	if _, err := models.ParseDate(date); err != nil {
		return appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", date)
	}
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		next, err := store.WithoutSubstitution(date, lessonID)
		if err != nil {
			return nil, 0, err
		}
		return next, CollectionSubstitutions, nil
	})
	return err
}

// MarkAbsent records a teacher absence and reports the lessons of that date still
// without an outcome. With CancelRest every such lesson is cancelled in the same write.
func (s *SubstitutionService) MarkAbsent(ctx context.Context, hy models.HalfYear, req dto.AbsenceRequest) (dto.AbsenceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AbsenceResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	weekday, err := models.WeekdayOf(req.Date)
	if err != nil {
		return dto.AbsenceResponse{}, appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", req.Date)
	}

	var resp dto.AbsenceResponse
	_, err = s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		next, err := store.MarkTeacherAbsent(req.TeacherID, req.Date, req.Reason)
		if err != nil {
			return nil, 0, err
		}
		changed := CollectionTeachers
		uncovered := uncoveredLessons(next, req.TeacherID, req.Date, weekday)
		if req.CancelRest && len(uncovered) > 0 {
			reason := normalizeOptional(&req.Reason)
			batch := make([]models.Substitution, 0, len(uncovered))
			for _, l := range uncovered {
				batch = append(batch, models.Substitution{
					Date:               req.Date,
					LessonID:           l.ID,
					ReplacementOutcome: models.Cancelled(),
					Reason:             reason,
				})
			}
			cancelled, saved, err := next.WithSubstitutions(batch)
			if err != nil {
				return nil, 0, err
			}
			next = cancelled
			resp.Cancelled = saved
			uncovered = nil
			changed |= CollectionSubstitutions
		}
		teacher, _ := next.Teacher(req.TeacherID)
		resp.Teacher = teacher
		resp.Uncovered = uncovered
		return next, changed, nil
	})
	if err != nil {
		return dto.AbsenceResponse{}, err
	}
	s.metrics.RecordSubstitutions(resp.Cancelled...)
	return resp, nil
}

// uncoveredLessons lists the teacher's lessons on weekday without an outcome for date.
func uncoveredLessons(store *TimetableStore, teacherID, date string, weekday int) []models.LessonSlot {
	var out []models.LessonSlot
	for _, l := range store.Lessons() {
		if l.TeacherID != teacherID || l.Weekday != weekday {
			continue
		}
		if _, ok := store.Substitution(date, l.ID); ok {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Shift != out[j].Shift {
			return out[i].Shift < out[j].Shift
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// MonthlyLoad counts the cover lessons each teacher took in month (YYYY-MM).
func (s *SubstitutionService) MonthlyLoad(ctx context.Context, hy models.HalfYear, query dto.MonthlyLoadQuery) ([]models.TeacherLoad, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month")
	}
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	counts := monthlySubstitutionCounts(store.Substitutions(), query.Month)
	out := make([]models.TeacherLoad, 0, len(counts))
	for id, n := range counts {
		out = append(out, models.TeacherLoad{TeacherID: id, TeacherName: teacherName(store, id), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].TeacherName) < strings.ToLower(out[j].TeacherName)
	})
	return out, nil
}

// Daily returns the substitutions of date ordered by shift and period.
func (s *SubstitutionService) Daily(ctx context.Context, hy models.HalfYear, date string) ([]models.Substitution, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", date)
	}
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	return dailySubstitutions(store, date), nil
}

func dailySubstitutions(store *TimetableStore, date string) []models.Substitution {
	subs := store.SubstitutionsOn(date)
	sort.SliceStable(subs, func(i, j int) bool {
		a, errA := store.Lesson(subs[i].LessonID)
		b, errB := store.Lesson(subs[j].LessonID)
		if errA != nil || errB != nil {
			return subs[i].LessonID < subs[j].LessonID
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.ClassID < b.ClassID
	})
	return subs
}

func (s *SubstitutionService) notify(ctx context.Context, store *TimetableStore, sub models.Substitution) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifySubstitution(ctx, store, sub)
}
