package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// FormatSubstitutionSummary renders a substitution as plain text for messaging channels.
func FormatSubstitutionSummary(store *TimetableStore, sub models.Substitution) (string, error) {
	lesson, err := store.Lesson(sub.LessonID)
	if err != nil {
		return "", err
	}
	var b strings.Builder

	fmt.Fprintf(&b, "%s, period %d (%s shift)\n", sub.Date, lesson.Period, strings.ToLower(string(lesson.Shift)))

	classID, subjectID := lesson.ClassID, lesson.SubjectID
	if sub.OverrideClassID != nil {
		classID = *sub.OverrideClassID
	}
	if sub.OverrideSubjectID != nil {
		subjectID = *sub.OverrideSubjectID
	}
	fmt.Fprintf(&b, "Class %s, %s\n", className(store, classID), subjectName(store, subjectID))

	original := teacherName(store, sub.OriginalTeacherID)
	switch sub.Kind {
	case models.ReplacementConducted:
		fmt.Fprintf(&b, "%s conducts the lesson as planned\n", original)
	case models.ReplacementCancelled:
		b.WriteString("Lesson cancelled\n")
	default:
		id, _ := sub.Teacher()
		switch {
		case id == sub.OriginalTeacherID && sub.OverrideClassID != nil:
			fmt.Fprintf(&b, "%s swaps lessons (was %s, %s)\n", original, className(store, lesson.ClassID), subjectName(store, lesson.SubjectID))
		case id == sub.OriginalTeacherID:
			fmt.Fprintf(&b, "%s keeps the lesson\n", original)
		default:
			fmt.Fprintf(&b, "%s replaces %s\n", teacherName(store, id), original)
		}
	}

	if sub.ReplacementRoomID != nil {
		from := "no room"
		if r := lesson.Room(); r != "" {
			from = roomName(store, r)
		}
		fmt.Fprintf(&b, "Room: %s -> %s\n", from, roomName(store, *sub.ReplacementRoomID))
	}
	if sub.Merger {
		b.WriteString("Merged with another class\n")
	}
	if sub.Reason != nil && strings.TrimSpace(*sub.Reason) != "" {
		fmt.Fprintf(&b, "Reason: %s\n", strings.TrimSpace(*sub.Reason))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func teacherName(store *TimetableStore, id string) string {
	if t, err := store.Teacher(id); err == nil {
		return t.Name
	}
	return id
}

func className(store *TimetableStore, id string) string {
	if c, err := store.Class(id); err == nil {
		return c.Name
	}
	return id
}

func subjectName(store *TimetableStore, id string) string {
	if s, err := store.Subject(id); err == nil {
		return s.Name
	}
	return id
}

func roomName(store *TimetableStore, id string) string {
	if r, err := store.Room(id); err == nil {
		return r.Name
	}
	return id
}
