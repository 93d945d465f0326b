package dto

// BellSlotRequest is one timed period of a preset.
type BellSlotRequest struct {
	Shift     string `json:"shift" validate:"required,oneof=FIRST SECOND"`
	Period    int    `json:"period" validate:"min=0,max=7"`
	Weekday   string `json:"weekday" validate:"omitempty,oneof=default 1 2 3 4 5 6 7"`
	Start     string `json:"start" validate:"required,datetime=15:04"`
	End       string `json:"end" validate:"required,datetime=15:04"`
	Cancelled bool   `json:"cancelled"`
}

// BellPresetRequest creates a named bell preset.
type BellPresetRequest struct {
	Name  string            `json:"name" validate:"required,max=100"`
	Slots []BellSlotRequest `json:"slots" validate:"required,min=1,dive"`
}
