package dto

import "github.com/noah-isme/timetable-api/internal/models"

// CandidateQuery asks for the ranked substitutes of one uncovered lesson.
type CandidateQuery struct {
	Date     string   `form:"date" validate:"required,datetime=2006-01-02"`
	LessonID string   `form:"lessonId" validate:"required"`
	Query    string   `form:"q"`
	Declined []string `form:"declined"`
}

// AssignSubstitutionRequest resolves an uncovered lesson.
type AssignSubstitutionRequest struct {
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	LessonID  string  `json:"lessonId" validate:"required"`
	Outcome   string  `json:"outcome" validate:"required,oneof=teacher conducted cancelled"`
	TeacherID *string `json:"teacherId" validate:"required_if=Outcome teacher"`
	RoomID    *string `json:"roomId"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
	// ConfirmMerger acknowledges that the chosen teacher is already busy at that time.
	ConfirmMerger bool     `json:"confirmMerger"`
	Declined      []string `json:"declined"`
}

// SubstitutionResponse carries the stored substitution and its advisories.
type SubstitutionResponse struct {
	Substitution models.Substitution `json:"substitution"`
	Summary      string              `json:"summary"`
	Advisories   []models.Advisory   `json:"advisories"`
}

// SwapRequest exchanges the content of two lessons of the same teacher on one date.
type SwapRequest struct {
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	SourceLessonID string  `json:"sourceLessonId" validate:"required"`
	TargetLessonID string  `json:"targetLessonId" validate:"required,nefield=SourceLessonID"`
	KeepOwnRooms   bool    `json:"keepOwnRooms"`
	SourceRoomID   *string `json:"sourceRoomId"`
	Reason         *string `json:"reason" validate:"omitempty,max=500"`
}

// SwapResponse returns both written substitutions.
type SwapResponse struct {
	Substitutions []models.Substitution `json:"substitutions"`
	Advisories    []models.Advisory     `json:"advisories"`
}

// AbsenceRequest marks a teacher absent for a date.
type AbsenceRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
	// CancelRest writes a cancelled outcome for every lesson of that day still uncovered.
	CancelRest bool `json:"cancelRest"`
}

// AbsenceResponse lists the lessons the absence leaves uncovered.
type AbsenceResponse struct {
	Teacher   models.Teacher        `json:"teacher"`
	Uncovered []models.LessonSlot   `json:"uncovered"`
	Cancelled []models.Substitution `json:"cancelled"`
}

// MonthlyLoadQuery selects a calendar month as YYYY-MM.
type MonthlyLoadQuery struct {
	Month string `form:"month" validate:"required,datetime=2006-01"`
}

// ExportQuery selects the day sheet to export.
type ExportQuery struct {
	Date   string `form:"date" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
