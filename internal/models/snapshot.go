package models

// Snapshot is the complete data set of one half-year.
type Snapshot struct {
	HalfYear      HalfYear       `json:"half_year"`
	Version       int64          `json:"version"`
	Teachers      []Teacher      `json:"teachers"`
	Classes       []ClassGroup   `json:"classes"`
	Rooms         []Room         `json:"rooms"`
	Subjects      []Subject      `json:"subjects"`
	Lessons       []LessonSlot   `json:"lessons"`
	Substitutions []Substitution `json:"substitutions"`
	DutyZones     []DutyZone     `json:"duty_zones"`
	DutyRecords   []DutyRecord   `json:"duty_records"`
}

// SnapshotDelta carries the collections replaced by one write. Nil means unchanged.
type SnapshotDelta struct {
	HalfYear      HalfYear
	Version       int64
	Teachers      *[]Teacher
	Lessons       *[]LessonSlot
	Substitutions *[]Substitution
	DutyRecords   *[]DutyRecord
}

// Empty reports whether the delta replaces nothing.
func (d SnapshotDelta) Empty() bool {
	return d.Teachers == nil && d.Lessons == nil && d.Substitutions == nil && d.DutyRecords == nil
}

// Merge overlays later collections from other onto d.
func (d SnapshotDelta) Merge(other SnapshotDelta) SnapshotDelta {
	if other.Version > d.Version {
		d.Version = other.Version
	}
	if other.Teachers != nil {
		d.Teachers = other.Teachers
	}
	if other.Lessons != nil {
		d.Lessons = other.Lessons
	}
	if other.Substitutions != nil {
		d.Substitutions = other.Substitutions
	}
	if other.DutyRecords != nil {
		d.DutyRecords = other.DutyRecords
	}
	return d
}
