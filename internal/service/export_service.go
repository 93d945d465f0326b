package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered sheet ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type sheetRenderer func(export.Sheet) ([]byte, error)

// ExportService renders the daily substitution sheet and the duty roster.
type ExportService struct {
	snapshots *SnapshotService
	logger    *zap.Logger
	csv       sheetRenderer
	pdf       sheetRenderer
}

// NewExportService constructs an ExportService.
func NewExportService(snapshots *SnapshotService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{snapshots: snapshots, logger: logger, csv: export.RenderCSV, pdf: export.RenderPDF}
}

// DailySubstitutions renders the substitutions of date.
func (s *ExportService) DailySubstitutions(ctx context.Context, hy models.HalfYear, date string, format ExportFormat) (*ExportFile, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, appErrors.Cloned(appErrors.ErrValidation, "invalid date %q", date)
	}
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	sheet := SubstitutionSheet(store, date)
	return s.render(sheet, "substitutions-"+date, format)
}

// DutyRoster renders the full duty roster.
func (s *ExportService) DutyRoster(ctx context.Context, hy models.HalfYear, format ExportFormat) (*ExportFile, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	return s.render(DutySheet(store), "duty-roster-"+strings.ToLower(string(hy)), format)
}

func (s *ExportService) render(sheet export.Sheet, name string, format ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = ExportCSV
	}
	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case ExportCSV:
		body, err = s.csv(sheet)
		contentType = "text/csv"
	case ExportPDF:
		body, err = s.pdf(sheet)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Cloned(appErrors.ErrValidation, "unsupported export format %q", format)
	}
	if err != nil {
		s.logger.Error("export render failed", zap.String("sheet", name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{Filename: fmt.Sprintf("%s.%s", name, format), ContentType: contentType, Body: body}, nil
}

// SubstitutionSheet lays out the substitutions of date one row per lesson.
func SubstitutionSheet(store *TimetableStore, date string) export.Sheet {
	sheet := export.Sheet{
		Title:    "Substitutions " + date,
		Subtitle: "Half-year " + string(store.HalfYear()),
		Headers:  []string{"Shift", "Period", "Class", "Subject", "Teacher", "Replacement", "Room", "Merger", "Reason"},
		Rows:     [][]string{},
	}
	for _, sub := range dailySubstitutions(store, date) {
		lesson, err := store.Lesson(sub.LessonID)
		if err != nil {
			continue
		}
		classID, subjectID := lesson.ClassID, lesson.SubjectID
		if sub.OverrideClassID != nil {
			classID = *sub.OverrideClassID
		}
		if sub.OverrideSubjectID != nil {
			subjectID = *sub.OverrideSubjectID
		}
		room := lesson.Room()
		if sub.ReplacementRoomID != nil {
			room = *sub.ReplacementRoomID
		}
		roomLabel := ""
		if room != "" {
			roomLabel = roomName(store, room)
		}
		reason := ""
		if sub.Reason != nil {
			reason = *sub.Reason
		}
		merger := ""
		if sub.Merger {
			merger = "yes"
		}
		sheet.Rows = append(sheet.Rows, []string{
			strings.ToLower(string(lesson.Shift)),
			strconv.Itoa(lesson.Period),
			className(store, classID),
			subjectName(store, subjectID),
			teacherName(store, sub.OriginalTeacherID),
			replacementLabel(store, sub),
			roomLabel,
			merger,
			reason,
		})
	}
	return sheet
}

func replacementLabel(store *TimetableStore, sub models.Substitution) string {
	switch sub.Kind {
	case models.ReplacementConducted:
		return "conducted"
	case models.ReplacementCancelled:
		return "cancelled"
	}
	id, _ := sub.Teacher()
	return teacherName(store, id)
}

// DutySheet lays out the roster one row per record.
func DutySheet(store *TimetableStore) export.Sheet {
	sheet := export.Sheet{
		Title:    "Duty roster",
		Subtitle: "Half-year " + string(store.HalfYear()),
		Headers:  []string{"Weekday", "Shift", "Zone", "Floor", "Teacher"},
		Rows:     [][]string{},
	}
	for _, r := range sortedRoster(store) {
		zone, floor := r.ZoneID, ""
		if z, err := store.Zone(r.ZoneID); err == nil {
			zone, floor = z.Name, z.Floor
		}
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(r.Weekday),
			strings.ToLower(string(r.Shift)),
			zone,
			floor,
			teacherName(store, r.TeacherID),
		})
	}
	return sheet
}
