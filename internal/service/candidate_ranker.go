package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// RankWeights are the additive score adjustments of the substitute ranking.
type RankWeights struct {
	AbsentPenalty   int
	BusyPenalty     int
	SpecialistBonus int
}

// DefaultRankWeights returns the tuned defaults.
func DefaultRankWeights() RankWeights {
	return RankWeights{AbsentPenalty: -1000, BusyPenalty: -100, SpecialistBonus: 50}
}

// RankWeightsFromConfig maps heuristics configuration onto RankWeights.
func RankWeightsFromConfig(h config.HeuristicsConfig) RankWeights {
	return RankWeights{
		AbsentPenalty:   h.RankAbsentPenalty,
		BusyPenalty:     h.RankBusyPenalty,
		SpecialistBonus: h.RankSpecialistBonus,
	}
}

// RankRequest describes the uncovered lesson being filled.
type RankRequest struct {
	LessonID string
	Date     string
	// Filter narrows the pool by case-insensitive name substring before scoring.
	Filter   string
	Declined []string
}

// RankCandidates orders every teacher of the store as a substitute for the lesson.
// The result is a deterministic function of the store contents and the request.
func RankCandidates(store *TimetableStore, req RankRequest, w RankWeights) ([]models.RankedCandidate, error) {
	lesson, err := store.Lesson(req.LessonID)
	if err != nil {
		return nil, err
	}
	weekday, err := models.WeekdayOf(req.Date)
	if err != nil {
		return nil, appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", req.Date)
	}
	if weekday != lesson.Weekday {
		return nil, appErrors.Cloned(appErrors.ErrValidation, "lesson %s is not held on %s", lesson.ID, req.Date)
	}

	busy := busyTeachers(store, lesson, req.Date)
	monthly := monthlySubstitutionCounts(store.Substitutions(), req.Date[:7])
	declined := make(map[string]struct{}, len(req.Declined))
	for _, id := range req.Declined {
		declined[id] = struct{}{}
	}
	filter := strings.ToLower(strings.TrimSpace(req.Filter))

	out := make([]models.RankedCandidate, 0, len(store.Teachers()))
	for _, t := range store.Teachers() {
		if filter != "" && !strings.Contains(strings.ToLower(t.Name), filter) {
			continue
		}
		c := models.RankedCandidate{
			TeacherID:                t.ID,
			TeacherName:              t.Name,
			IsAbsent:                 t.IsAbsentOn(req.Date),
			IsSpecialist:             t.HasSubject(lesson.SubjectID),
			MonthlySubstitutionCount: monthly[t.ID],
		}
		_, c.IsBusy = busy[t.ID]
		_, c.Declined = declined[t.ID]
		if c.IsAbsent {
			c.Score += w.AbsentPenalty
		}
		if c.IsBusy {
			c.Score += w.BusyPenalty
		}
		if c.IsSpecialist {
			c.Score += w.SpecialistBonus
		}
		c.OneClick = !c.Declined && !c.IsBusy && !c.IsAbsent
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ni, nj := strings.ToLower(out[i].TeacherName), strings.ToLower(out[j].TeacherName)
		if ni != nj {
			return ni < nj
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out, nil
}

// busyTeachers collects teachers occupied at the lesson's slot-time on date, either by
// their own regular lesson or by a substitution already assigned to them. A regular
// lesson that is cancelled or handed to someone else that day frees its teacher.
func busyTeachers(store *TimetableStore, lesson models.LessonSlot, date string) map[string]struct{} {
	busy := make(map[string]struct{})
	for _, other := range store.Lessons() {
		if other.ID == lesson.ID || other.Key() != lesson.Key() {
			continue
		}
		if sub, ok := store.Substitution(date, other.ID); ok {
			if sub.Kind == models.ReplacementCancelled {
				continue
			}
			if id, named := sub.Teacher(); named && id != other.TeacherID {
				continue
			}
		}
		busy[other.TeacherID] = struct{}{}
	}
	for _, sub := range store.SubstitutionsOn(date) {
		if sub.LessonID == lesson.ID {
			continue
		}
		id, named := sub.Teacher()
		if !named {
			continue
		}
		covered, err := store.Lesson(sub.LessonID)
		if err != nil || covered.Key() != lesson.Key() {
			continue
		}
		busy[id] = struct{}{}
	}
	return busy
}

func monthlySubstitutionCounts(subs []models.Substitution, month string) map[string]int {
	counts := make(map[string]int)
	for _, sub := range subs {
		if !strings.HasPrefix(sub.Date, month) {
			continue
		}
		// room changes and swaps keep the original teacher and are not cover work
		if id, ok := sub.Teacher(); ok && id != sub.OriginalTeacherID {
			counts[id]++
		}
	}
	return counts
}
