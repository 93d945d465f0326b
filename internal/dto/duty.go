package dto

// DutySolveRequest runs the roster solver. Empty weekdays use the configured school days.
type DutySolveRequest struct {
	Weekdays []int `json:"weekdays" validate:"omitempty,dive,min=1,max=7"`
}

// DutyAssignRequest sets the teacher of one zone slot by hand.
type DutyAssignRequest struct {
	ZoneID    string `json:"zoneId" validate:"required"`
	Weekday   int    `json:"weekday" validate:"required,min=1,max=7"`
	Shift     string `json:"shift" validate:"required,oneof=FIRST SECOND"`
	TeacherID string `json:"teacherId" validate:"required"`
}

// DutyClearQuery selects roster records to remove. Empty fields match everything.
type DutyClearQuery struct {
	Weekday int    `form:"weekday" validate:"omitempty,min=1,max=7"`
	ZoneID  string `form:"zoneId"`
	Shift   string `form:"shift" validate:"omitempty,oneof=FIRST SECOND"`
}
