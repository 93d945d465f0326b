package service

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
)

// DutyWeights tune the greedy duty assignment.
type DutyWeights struct {
	ZoneLessonWeight  int
	PresenceBonus     int
	PresenceThreshold int
	ReusePenalty      int
	DisqualifiedScore int
	QualifyThreshold  int
}

// DefaultDutyWeights returns the tuned defaults.
func DefaultDutyWeights() DutyWeights {
	return DutyWeights{
		ZoneLessonWeight:  10,
		PresenceBonus:     5,
		PresenceThreshold: 4,
		ReusePenalty:      -2000,
		DisqualifiedScore: -9999,
		QualifyThreshold:  -500,
	}
}

// DutyWeightsFromConfig maps heuristics configuration onto DutyWeights.
func DutyWeightsFromConfig(h config.HeuristicsConfig) DutyWeights {
	return DutyWeights{
		ZoneLessonWeight:  h.DutyZoneLessonWeight,
		PresenceBonus:     h.DutyPresenceBonus,
		PresenceThreshold: h.DutyPresenceThreshold,
		ReusePenalty:      h.DutyReusePenalty,
		DisqualifiedScore: h.DutyDisqualifiedScore,
		QualifyThreshold:  h.DutyQualifyThreshold,
	}
}

type dutyCandidate struct {
	teacher models.Teacher
	lessons []models.LessonSlot
}

// SolveDuty assigns one teacher per (weekday, shift, zone). Zones are filled in display
// order; a teacher already on duty that weekday is penalised, not excluded. The result
// replaces any existing roster.
func SolveDuty(store *TimetableStore, weekdays []int, w DutyWeights) models.DutyRoster {
	zones := store.Zones()
	roster := models.DutyRoster{Records: []models.DutyRecord{}, Unassigned: []models.UnassignedZone{}}

	for _, weekday := range weekdays {
		used := make(map[string]struct{})
		for _, shift := range models.Shifts {
			pool := dutyPool(store, weekday, shift)
			for _, zone := range zones {
				members := zoneMembers(zone)
				bestIdx, bestScore := -1, 0
				for i, c := range pool {
					score := dutyScore(store, c, members, used, w)
					if score <= w.QualifyThreshold {
						continue
					}
					if bestIdx == -1 || score > bestScore {
						bestIdx, bestScore = i, score
					}
				}
				if bestIdx == -1 {
					roster.Unassigned = append(roster.Unassigned, models.UnassignedZone{ZoneID: zone.ID, Weekday: weekday, Shift: shift})
					continue
				}
				chosen := pool[bestIdx].teacher
				used[chosen.ID] = struct{}{}
				roster.Records = append(roster.Records, models.DutyRecord{
					ID:        uuid.NewString(),
					HalfYear:  store.HalfYear(),
					ZoneID:    zone.ID,
					Weekday:   weekday,
					Shift:     shift,
					TeacherID: chosen.ID,
				})
			}
		}
	}
	return roster
}

// dutyPool returns teachers with at least one lesson in (weekday, shift), ordered by name then id.
func dutyPool(store *TimetableStore, weekday int, shift models.Shift) []dutyCandidate {
	byTeacher := make(map[string][]models.LessonSlot)
	for _, l := range store.LessonsOn(weekday, shift) {
		byTeacher[l.TeacherID] = append(byTeacher[l.TeacherID], l)
	}
	pool := make([]dutyCandidate, 0, len(byTeacher))
	for id, lessons := range byTeacher {
		teacher, err := store.Teacher(id)
		if err != nil {
			continue
		}
		pool = append(pool, dutyCandidate{teacher: teacher, lessons: lessons})
	}
	sort.Slice(pool, func(i, j int) bool {
		ni, nj := strings.ToLower(pool[i].teacher.Name), strings.ToLower(pool[j].teacher.Name)
		if ni != nj {
			return ni < nj
		}
		return pool[i].teacher.ID < pool[j].teacher.ID
	})
	return pool
}

func dutyScore(store *TimetableStore, c dutyCandidate, members zoneRoomSet, used map[string]struct{}, w DutyWeights) int {
	inZone := 0
	for _, l := range c.lessons {
		if members.contains(store, l.Room()) {
			inZone++
		}
	}
	if inZone == 0 {
		return w.DisqualifiedScore
	}
	score := inZone * w.ZoneLessonWeight
	if len(c.lessons) >= w.PresenceThreshold {
		score += w.PresenceBonus
	}
	if _, ok := used[c.teacher.ID]; ok {
		score += w.ReusePenalty
	}
	return score
}

type zoneRoomSet struct {
	exact  map[string]struct{}
	digits map[string]struct{}
}

func zoneMembers(zone models.DutyZone) zoneRoomSet {
	set := zoneRoomSet{exact: make(map[string]struct{}), digits: make(map[string]struct{})}
	for _, r := range zone.Rooms {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		set.exact[r] = struct{}{}
		if d := trailingDigits(r); d != "" {
			set.digits[d] = struct{}{}
		}
	}
	return set
}

// contains matches a lesson room by id, by name, or by the trailing number of either.
func (z zoneRoomSet) contains(store *TimetableStore, roomID string) bool {
	if roomID == "" {
		return false
	}
	labels := []string{roomID}
	if room, err := store.Room(roomID); err == nil {
		labels = append(labels, room.Name)
	}
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if _, ok := z.exact[label]; ok {
			return true
		}
		if d := trailingDigits(label); d != "" {
			if _, ok := z.digits[d]; ok {
				return true
			}
		}
	}
	return false
}

func trailingDigits(s string) string {
	end := len(s)
	start := end
	for start > 0 && unicode.IsDigit(rune(s[start-1])) {
		start--
	}
	return s[start:end]
}

// DetectDutyConflicts lists teachers rostered in more than one zone at the same weekday and shift.
func DetectDutyConflicts(records []models.DutyRecord) []models.DutyConflict {
	type slot struct {
		teacher string
		weekday int
		shift   models.Shift
	}
	zones := make(map[slot][]string)
	for _, r := range records {
		key := slot{r.TeacherID, r.Weekday, r.Shift}
		zones[key] = append(zones[key], r.ZoneID)
	}
	var out []models.DutyConflict
	for key, ids := range zones {
		if len(ids) < 2 {
			continue
		}
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		out = append(out, models.DutyConflict{TeacherID: key.teacher, Weekday: key.weekday, Shift: key.shift, ZoneIDs: sorted})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		if out[i].Shift != out[j].Shift {
			return out[i].Shift == models.ShiftFirst
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out
}
