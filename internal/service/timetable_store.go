package service

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// TimetableStore is an immutable view over one half-year snapshot. Every With*
// method validates the write and returns a new store; the receiver is never modified.
type TimetableStore struct {
	snap models.Snapshot

	lessons  map[string]int
	teachers map[string]int
	classes  map[string]int
	rooms    map[string]int
	subjects map[string]int
	zones    map[string]int
	subs     map[models.SubstitutionKey]int
}

// NewTimetableStore indexes snap. The snapshot's slices must not be mutated afterwards.
func NewTimetableStore(snap models.Snapshot) *TimetableStore {
	s := &TimetableStore{snap: snap}
	s.reindex()
	return s
}

func (s *TimetableStore) reindex() {
	s.lessons = make(map[string]int, len(s.snap.Lessons))
	for i, l := range s.snap.Lessons {
		s.lessons[l.ID] = i
	}
	s.teachers = make(map[string]int, len(s.snap.Teachers))
	for i, t := range s.snap.Teachers {
		s.teachers[t.ID] = i
	}
	s.classes = make(map[string]int, len(s.snap.Classes))
	for i, c := range s.snap.Classes {
		s.classes[c.ID] = i
	}
	s.rooms = make(map[string]int, len(s.snap.Rooms))
	for i, r := range s.snap.Rooms {
		s.rooms[r.ID] = i
	}
	s.subjects = make(map[string]int, len(s.snap.Subjects))
	for i, sub := range s.snap.Subjects {
		s.subjects[sub.ID] = i
	}
	s.zones = make(map[string]int, len(s.snap.DutyZones))
	for i, z := range s.snap.DutyZones {
		s.zones[z.ID] = i
	}
	s.subs = make(map[models.SubstitutionKey]int, len(s.snap.Substitutions))
	for i, sub := range s.snap.Substitutions {
		s.subs[sub.Key()] = i
	}
}

func (s *TimetableStore) derive(snap models.Snapshot) *TimetableStore {
	next := &TimetableStore{snap: snap}
	next.reindex()
	return next
}

// HalfYear returns the selector the snapshot belongs to.
func (s *TimetableStore) HalfYear() models.HalfYear { return s.snap.HalfYear }

// Snapshot returns the underlying snapshot. Callers must treat it as read-only.
func (s *TimetableStore) Snapshot() models.Snapshot { return s.snap }

func (s *TimetableStore) Lessons() []models.LessonSlot { return s.snap.Lessons }
func (s *TimetableStore) Teachers() []models.Teacher { return s.snap.Teachers }
func (s *TimetableStore) Classes() []models.ClassGroup { return s.snap.Classes }
func (s *TimetableStore) Substitutions() []models.Substitution { return s.snap.Substitutions }
func (s *TimetableStore) DutyRecords() []models.DutyRecord { return s.snap.DutyRecords }

func (s *TimetableStore) missing(entity, id string) error {
	return appErrors.Cloned(appErrors.ErrMissingReference, "%s %s does not exist in half-year %s", entity, id, s.snap.HalfYear)
}

// Lesson looks up a lesson slot by id.
func (s *TimetableStore) Lesson(id string) (models.LessonSlot, error) {
	if i, ok := s.lessons[id]; ok {
		return s.snap.Lessons[i], nil
	}
	return models.LessonSlot{}, s.missing("lesson", id)
}

// Teacher looks up a teacher by id.
func (s *TimetableStore) Teacher(id string) (models.Teacher, error) {
	if i, ok := s.teachers[id]; ok {
		return s.snap.Teachers[i], nil
	}
	return models.Teacher{}, s.missing("teacher", id)
}

// Class looks up a class group by id.
func (s *TimetableStore) Class(id string) (models.ClassGroup, error) {
	if i, ok := s.classes[id]; ok {
		return s.snap.Classes[i], nil
	}
	return models.ClassGroup{}, s.missing("class", id)
}

// Room looks up a room by id.
func (s *TimetableStore) Room(id string) (models.Room, error) {
	if i, ok := s.rooms[id]; ok {
		return s.snap.Rooms[i], nil
	}
	return models.Room{}, s.missing("room", id)
}

// Subject looks up a subject by id.
func (s *TimetableStore) Subject(id string) (models.Subject, error) {
	if i, ok := s.subjects[id]; ok {
		return s.snap.Subjects[i], nil
	}
	return models.Subject{}, s.missing("subject", id)
}

// Zone looks up a duty zone by id.
func (s *TimetableStore) Zone(id string) (models.DutyZone, error) {
	if i, ok := s.zones[id]; ok {
		return s.snap.DutyZones[i], nil
	}
	return models.DutyZone{}, s.missing("duty zone", id)
}

// Zones returns duty zones in display order.
func (s *TimetableStore) Zones() []models.DutyZone {
	zones := append([]models.DutyZone(nil), s.snap.DutyZones...)
	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].DisplayOrder != zones[j].DisplayOrder {
			return zones[i].DisplayOrder < zones[j].DisplayOrder
		}
		return zones[i].ID < zones[j].ID
	})
	return zones
}

// LessonsOn returns the lessons held on weekday in shift.
func (s *TimetableStore) LessonsOn(weekday int, shift models.Shift) []models.LessonSlot {
	var out []models.LessonSlot
	for _, l := range s.snap.Lessons {
		if l.Weekday == weekday && l.Shift == shift {
			out = append(out, l)
		}
	}
	return out
}

// SubstitutionsOn returns every substitution recorded for date.
func (s *TimetableStore) SubstitutionsOn(date string) []models.Substitution {
	var out []models.Substitution
	for _, sub := range s.snap.Substitutions {
		if sub.Date == date {
			out = append(out, sub)
		}
	}
	return out
}

// Substitution returns the overlay for (date, lessonID), if any.
func (s *TimetableStore) Substitution(date, lessonID string) (models.Substitution, bool) {
	if i, ok := s.subs[models.SubstitutionKey{Date: date, LessonID: lessonID}]; ok {
		return s.snap.Substitutions[i], true
	}
	return models.Substitution{}, false
}

// ClassExcluded reports whether the class opted out of conflict checks.
func (s *TimetableStore) ClassExcluded(classID string) bool {
	c, err := s.Class(classID)
	return err == nil && c.ExcludeFromConflicts
}

// WithLesson creates or replaces a lesson slot. Moving a lesson to another weekday drops
// its substitutions, whose dates no longer fall on the lesson's day.
func (s *TimetableStore) WithLesson(lesson models.LessonSlot) (*TimetableStore, models.LessonSlot, error) {
	if !lesson.Shift.Valid() {
		return nil, lesson, appErrors.Cloned(appErrors.ErrValidation, "unknown shift %q", lesson.Shift)
	}
	if !lesson.Shift.ValidPeriod(lesson.Period) {
		lo, hi := lesson.Shift.PeriodRange()
		return nil, lesson, appErrors.Cloned(appErrors.ErrValidation, "period %d is outside %d-%d for the %s shift", lesson.Period, lo, hi, strings.ToLower(string(lesson.Shift)))
	}
	if lesson.Weekday < 1 || lesson.Weekday > 7 {
		return nil, lesson, appErrors.Cloned(appErrors.ErrValidation, "weekday %d is outside 1-7", lesson.Weekday)
	}
	if _, err := s.Teacher(lesson.TeacherID); err != nil {
		return nil, lesson, err
	}
	if _, err := s.Class(lesson.ClassID); err != nil {
		return nil, lesson, err
	}
	if _, err := s.Subject(lesson.SubjectID); err != nil {
		return nil, lesson, err
	}
	if room := lesson.Room(); room != "" {
		if _, err := s.Room(room); err != nil {
			return nil, lesson, err
		}
	} else {
		lesson.RoomID = nil
	}
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	lesson.HalfYear = s.snap.HalfYear
	lesson.Track = strings.TrimSpace(lesson.Track)

	next := s.snap
	next.Lessons = make([]models.LessonSlot, 0, len(s.snap.Lessons)+1)
	replaced, moved := false, false
	for _, l := range s.snap.Lessons {
		if l.ID == lesson.ID {
			next.Lessons = append(next.Lessons, lesson)
			replaced = true
			moved = l.Weekday != lesson.Weekday
			continue
		}
		next.Lessons = append(next.Lessons, l)
	}
	if !replaced {
		next.Lessons = append(next.Lessons, lesson)
	}
	if moved {
		next.Substitutions = make([]models.Substitution, 0, len(s.snap.Substitutions))
		for _, sub := range s.snap.Substitutions {
			if sub.LessonID != lesson.ID {
				next.Substitutions = append(next.Substitutions, sub)
			}
		}
	}
	return s.derive(next), lesson, nil
}

// WithoutLesson deletes a lesson slot together with its substitutions.
func (s *TimetableStore) WithoutLesson(id string) (*TimetableStore, error) {
	if _, err := s.Lesson(id); err != nil {
		return nil, err
	}
	next := s.snap
	next.Lessons = make([]models.LessonSlot, 0, len(s.snap.Lessons))
	for _, l := range s.snap.Lessons {
		if l.ID != id {
			next.Lessons = append(next.Lessons, l)
		}
	}
	next.Substitutions = make([]models.Substitution, 0, len(s.snap.Substitutions))
	for _, sub := range s.snap.Substitutions {
		if sub.LessonID != id {
			next.Substitutions = append(next.Substitutions, sub)
		}
	}
	return s.derive(next), nil
}

// WithTeacher creates or replaces a teacher.
func (s *TimetableStore) WithTeacher(teacher models.Teacher) (*TimetableStore, models.Teacher, error) {
	teacher.Name = strings.TrimSpace(teacher.Name)
	if teacher.Name == "" {
		return nil, teacher, appErrors.Clone(appErrors.ErrValidation, "teacher name is required")
	}
	shifts := make(pq.StringArray, 0, len(teacher.Shifts))
	for _, sh := range teacher.Shifts {
		shift := models.Shift(strings.ToUpper(strings.TrimSpace(sh)))
		if !shift.Valid() {
			return nil, teacher, appErrors.Cloned(appErrors.ErrValidation, "unknown shift %q for teacher %s", sh, teacher.Name)
		}
		shifts = append(shifts, string(shift))
	}
	teacher.Shifts = uniqueSorted(shifts)
	for _, d := range teacher.UnavailableDates {
		if _, err := models.ParseDate(d); err != nil {
			return nil, teacher, appErrors.Cloned(appErrors.ErrValidation, "invalid unavailable date %q for teacher %s", d, teacher.Name)
		}
	}
	teacher.UnavailableDates = uniqueSorted(teacher.UnavailableDates)
	teacher.Subjects = uniqueSorted(teacher.Subjects)
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.HalfYear = s.snap.HalfYear

	next := s.snap
	next.Teachers = make([]models.Teacher, 0, len(s.snap.Teachers)+1)
	replaced := false
	for _, t := range s.snap.Teachers {
		if t.ID == teacher.ID {
			teacher.CreatedAt = t.CreatedAt
			next.Teachers = append(next.Teachers, teacher)
			replaced = true
			continue
		}
		next.Teachers = append(next.Teachers, t)
	}
	if !replaced {
		next.Teachers = append(next.Teachers, teacher)
	}
	return s.derive(next), teacher, nil
}

// WithoutTeacher removes a teacher that no lesson references, dropping their duty records.
func (s *TimetableStore) WithoutTeacher(id string) (*TimetableStore, error) {
	teacher, err := s.Teacher(id)
	if err != nil {
		return nil, err
	}
	for _, l := range s.snap.Lessons {
		if l.TeacherID == id {
			return nil, appErrors.Cloned(appErrors.ErrConflict, "teacher %s still teaches lesson %s", teacher.Name, l.ID)
		}
	}
	next := s.snap
	next.Teachers = make([]models.Teacher, 0, len(s.snap.Teachers))
	for _, t := range s.snap.Teachers {
		if t.ID != id {
			next.Teachers = append(next.Teachers, t)
		}
	}
	next.DutyRecords = make([]models.DutyRecord, 0, len(s.snap.DutyRecords))
	for _, r := range s.snap.DutyRecords {
		if r.TeacherID != id {
			next.DutyRecords = append(next.DutyRecords, r)
		}
	}
	return s.derive(next), nil
}

// MarkTeacherAbsent adds date to the teacher's unavailable dates and records reason.
func (s *TimetableStore) MarkTeacherAbsent(teacherID, date, reason string) (*TimetableStore, error) {
	teacher, err := s.Teacher(teacherID)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseDate(date); err != nil {
		return nil, appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", date)
	}
	dates := append(pq.StringArray{}, teacher.UnavailableDates...)
	teacher.UnavailableDates = uniqueSorted(append(dates, date))
	reasons := make(models.ReasonMap, len(teacher.AbsenceReasons)+1)
	for k, v := range teacher.AbsenceReasons {
		reasons[k] = v
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		reasons[date] = reason
	}
	teacher.AbsenceReasons = reasons

	next, _, err := s.WithTeacher(teacher)
	return next, err
}

func (s *TimetableStore) validateSubstitution(sub models.Substitution) (models.Substitution, error) {
	lesson, err := s.Lesson(sub.LessonID)
	if err != nil {
		return sub, err
	}
	weekday, err := models.WeekdayOf(sub.Date)
	if err != nil {
		return sub, appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", sub.Date)
	}
	if weekday != lesson.Weekday {
		return sub, appErrors.Cloned(appErrors.ErrValidation, "lesson %s is not held on %s", lesson.ID, sub.Date)
	}
	if err := sub.ReplacementOutcome.Validate(); err != nil {
		return sub, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if id, ok := sub.Teacher(); ok {
		if _, err := s.Teacher(id); err != nil {
			return sub, err
		}
	}
	if sub.ReplacementRoomID != nil {
		if _, err := s.Room(*sub.ReplacementRoomID); err != nil {
			return sub, err
		}
	}
	if sub.OverrideClassID != nil {
		if _, err := s.Class(*sub.OverrideClassID); err != nil {
			return sub, err
		}
	}
	if sub.OverrideSubjectID != nil {
		if _, err := s.Subject(*sub.OverrideSubjectID); err != nil {
			return sub, err
		}
	}
	sub.HalfYear = s.snap.HalfYear
	sub.OriginalTeacherID = lesson.TeacherID
	if existing, ok := s.Substitution(sub.Date, sub.LessonID); ok {
		sub.ID = existing.ID
	} else if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	return sub, nil
}

// WithSubstitution upserts the overlay for (date, lesson). A later write replaces an earlier one.
func (s *TimetableStore) WithSubstitution(sub models.Substitution) (*TimetableStore, models.Substitution, error) {
	next, subs, err := s.WithSubstitutions([]models.Substitution{sub})
	if err != nil {
		return nil, sub, err
	}
	return next, subs[0], nil
}

// WithSubstitutions upserts a batch. Either every record is valid and written, or none is.
func (s *TimetableStore) WithSubstitutions(batch []models.Substitution) (*TimetableStore, []models.Substitution, error) {
	if len(batch) == 0 {
		return s, nil, nil
	}
	validated := make([]models.Substitution, 0, len(batch))
	index := make(map[models.SubstitutionKey]int, len(batch))
	for _, sub := range batch {
		v, err := s.validateSubstitution(sub)
		if err != nil {
			return nil, nil, err
		}
		if i, dup := index[v.Key()]; dup {
			validated[i] = v
			continue
		}
		index[v.Key()] = len(validated)
		validated = append(validated, v)
	}

	next := s.snap
	next.Substitutions = make([]models.Substitution, 0, len(s.snap.Substitutions)+len(validated))
	for _, existing := range s.snap.Substitutions {
		if i, ok := index[existing.Key()]; ok {
			next.Substitutions = append(next.Substitutions, validated[i])
			delete(index, existing.Key())
			continue
		}
		next.Substitutions = append(next.Substitutions, existing)
	}
	for _, v := range validated {
		if _, pending := index[v.Key()]; pending {
			next.Substitutions = append(next.Substitutions, v)
		}
	}
	return s.derive(next), validated, nil
}

// WithoutSubstitution removes the overlay for (date, lesson).
func (s *TimetableStore) WithoutSubstitution(date, lessonID string) (*TimetableStore, error) {
	if _, ok := s.Substitution(date, lessonID); !ok {
		return nil, appErrors.Cloned(appErrors.ErrNotFound, "no substitution for lesson %s on %s", lessonID, date)
	}
	next := s.snap
	next.Substitutions = make([]models.Substitution, 0, len(s.snap.Substitutions))
	for _, sub := range s.snap.Substitutions {
		if sub.Date == date && sub.LessonID == lessonID {
			continue
		}
		next.Substitutions = append(next.Substitutions, sub)
	}
	return s.derive(next), nil
}

// WithDutyRecords replaces the whole duty roster.
func (s *TimetableStore) WithDutyRecords(records []models.DutyRecord) (*TimetableStore, error) {
	type slot struct {
		zone    string
		weekday int
		shift   models.Shift
	}
	seen := make(map[slot]struct{}, len(records))
	out := make([]models.DutyRecord, 0, len(records))
	for _, r := range records {
		if _, err := s.Zone(r.ZoneID); err != nil {
			return nil, err
		}
		if _, err := s.Teacher(r.TeacherID); err != nil {
			return nil, err
		}
		if !r.Shift.Valid() || r.Weekday < 1 || r.Weekday > 7 {
			return nil, appErrors.Cloned(appErrors.ErrValidation, "invalid duty slot weekday %d shift %q", r.Weekday, r.Shift)
		}
		key := slot{r.ZoneID, r.Weekday, r.Shift}
		if _, dup := seen[key]; dup {
			return nil, appErrors.Cloned(appErrors.ErrValidation, "zone %s has two teachers on weekday %d %s shift", r.ZoneID, r.Weekday, strings.ToLower(string(r.Shift)))
		}
		seen[key] = struct{}{}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.HalfYear = s.snap.HalfYear
		out = append(out, r)
	}
	next := s.snap
	next.DutyRecords = out
	return s.derive(next), nil
}

// WithoutDutyRecords drops the roster records selected by filter.
func (s *TimetableStore) WithoutDutyRecords(filter models.DutyFilter) *TimetableStore {
	next := s.snap
	next.DutyRecords = make([]models.DutyRecord, 0, len(s.snap.DutyRecords))
	for _, r := range s.snap.DutyRecords {
		if !filter.Matches(r) {
			next.DutyRecords = append(next.DutyRecords, r)
		}
	}
	return s.derive(next)
}

func uniqueSorted(values pq.StringArray) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
