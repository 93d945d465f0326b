package service

import (
	"sort"
	"strconv"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

type timelineSlot struct {
	period int
	start  int
	end    int
}

// ResolvePeriod derives the live period state for now from the bell schedule.
// Gaps of maxBreakMinutes or longer between two lessons are not reported as breaks.
func ResolvePeriod(now time.Time, bells []models.BellSlot, maxBreakMinutes int) models.PeriodStatus {
	status := models.PeriodStatus{State: models.PeriodIdle, At: now}
	weekday := models.ISOWeekday(now)
	if weekday >= 6 {
		status.State = models.PeriodNoSchool
		return status
	}
	minute := now.Hour()*60 + now.Minute()
	timelines := buildTimelines(bells, weekday)

	for _, shift := range models.Shifts {
		for _, slot := range timelines[shift] {
			if minute < slot.start || minute >= slot.end {
				continue
			}
			period := slot.period
			length := slot.end - slot.start
			status.State = models.PeriodInLesson
			status.Shift = shift
			status.Period = &period
			status.ElapsedMinutes = minute - slot.start
			status.RemainingMinutes = slot.end - minute
			status.Progress = clampPercent(status.ElapsedMinutes * 100 / length)
			return status
		}
	}

	for _, shift := range models.Shifts {
		line := timelines[shift]
		for i := 0; i+1 < len(line); i++ {
			prev, next := line[i], line[i+1]
			gap := next.start - prev.end
			if gap <= 0 || gap >= maxBreakMinutes {
				continue
			}
			if minute >= prev.end && minute < next.start {
				period := next.period
				status.State = models.PeriodBreak
				status.Shift = shift
				status.NextPeriod = &period
				status.RemainingMinutes = next.start - minute
				return status
			}
		}
	}
	return status
}

// buildTimelines picks, per shift and period, the weekday-specific slot over the default
// one, drops cancelled and malformed slots, and orders the rest by start time.
func buildTimelines(bells []models.BellSlot, weekday int) map[models.Shift][]timelineSlot {
	type key struct {
		shift  models.Shift
		period int
	}
	day := strconv.Itoa(weekday)
	chosen := make(map[key]models.BellSlot)
	for _, b := range bells {
		k := key{b.Shift, b.Period}
		switch b.Weekday {
		case day:
			chosen[k] = b
		case models.BellWeekdayDefault, "":
			if existing, ok := chosen[k]; !ok || existing.Weekday != day {
				chosen[k] = b
			}
		}
	}

	timelines := make(map[models.Shift][]timelineSlot)
	for k, b := range chosen {
		if b.Cancelled {
			continue
		}
		start, end, err := b.Minutes()
		if err != nil || end <= start {
			continue
		}
		timelines[k.shift] = append(timelines[k.shift], timelineSlot{period: k.period, start: start, end: end})
	}
	for shift := range timelines {
		line := timelines[shift]
		sort.Slice(line, func(i, j int) bool {
			if line[i].start != line[j].start {
				return line[i].start < line[j].start
			}
			return line[i].period < line[j].period
		})
	}
	return timelines
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
