package dto

import "github.com/noah-isme/timetable-api/internal/models"

// LessonRequest creates or replaces a lesson slot.
type LessonRequest struct {
	ClassID   string  `json:"classId" validate:"required"`
	SubjectID string  `json:"subjectId" validate:"required"`
	TeacherID string  `json:"teacherId" validate:"required"`
	RoomID    *string `json:"roomId"`
	Weekday   int     `json:"weekday" validate:"required,min=1,max=7"`
	Period    int     `json:"period" validate:"min=0,max=7"`
	Shift     string  `json:"shift" validate:"required,oneof=FIRST SECOND"`
	Track     string  `json:"track" validate:"omitempty,max=50"`
}

// LessonCheckRequest is a draft lesson. LessonID names the stored lesson being edited so it
// is not compared against itself.
type LessonCheckRequest struct {
	LessonRequest
	LessonID *string `json:"lessonId"`
}

// LessonCheckResponse reports conflicts and advisories for a draft lesson.
type LessonCheckResponse struct {
	Tags       []models.ConflictTag `json:"tags"`
	Advisories []models.Advisory    `json:"advisories"`
}

// TeacherRequest creates or replaces a teacher.
type TeacherRequest struct {
	Name             string            `json:"name" validate:"required,max=200"`
	Subjects         []string          `json:"subjects"`
	Shifts           []string          `json:"shifts" validate:"omitempty,dive,oneof=FIRST SECOND"`
	UnavailableDates []string          `json:"unavailableDates" validate:"omitempty,dive,datetime=2006-01-02"`
	AbsenceReasons   map[string]string `json:"absenceReasons"`
	BirthDate        *string           `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	NotifyAddress    *string           `json:"notifyAddress" validate:"omitempty,max=320"`
}

// HistoryResponse describes the snapshot after an undo or redo.
type HistoryResponse struct {
	HalfYear  models.HalfYear `json:"halfYear"`
	Version   int64           `json:"version"`
	UndoDepth int             `json:"undoDepth"`
	RedoDepth int             `json:"redoDepth"`
}
