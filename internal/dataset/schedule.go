package dataset

import "time"

// AnnualAfter returns true if a sync is needed for an annual dataset
// that releases after the given month. Syncs once per year after the release month.
func AnnualAfter(now time.Time, lastSync *time.Time, releaseMonth time.Month) bool {
	if lastSync == nil {
		return true
	}
	releaseDate := time.Date(now.Year(), releaseMonth, 1, 0, 0, 0, 0, time.UTC)
	return now.After(releaseDate) && lastSync.Before(releaseDate)
}

// QuarterlyAfterDelay returns true if a sync is needed for a quarterly dataset
// that becomes available a certain number of days after the quarter ends.
func QuarterlyAfterDelay(now time.Time, lastSync *time.Time, delayDays int) bool {
	if lastSync == nil {
		return true
	}
	qEnd := mostRecentQuarterEnd(now)
	available := qEnd.AddDate(0, 0, delayDays)
	if now.Before(available) {
		qEnd = mostRecentQuarterEnd(qEnd.AddDate(0, 0, -1))
		available = qEnd.AddDate(0, 0, delayDays)
		if now.Before(available) {
			return false
		}
	}
	return lastSync.Before(available)
}

// MonthlySchedule returns true if a sync is needed for a monthly dataset.
func MonthlySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return lastSync.Before(thisMonth)
}

// WeeklySchedule returns true if a sync is needed for a weekly dataset.
func WeeklySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	// Start of the current ISO week (Monday).
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	weekStart := time.Date(now.Year(), now.Month(), now.Day()-(weekday-1), 0, 0, 0, 0, time.UTC)
	return lastSync.Before(weekStart)
}

// mostRecentQuarterEnd returns the last day of the most recent completed quarter.
func mostRecentQuarterEnd(t time.Time) time.Time {
	year := t.Year()
	month := t.Month()

	var qEndMonth time.Month
	var qEndYear int

	switch {
	case month >= time.January && month <= time.March:
		qEndMonth = time.December
		qEndYear = year - 1
	case month >= time.April && month <= time.June:
		qEndMonth = time.March
		qEndYear = year
	case month >= time.July && month <= time.September:
		qEndMonth = time.June
		qEndYear = year
	default:
		qEndMonth = time.September
		qEndYear = year
	}

	return time.Date(qEndYear, qEndMonth+1, 0, 23, 59, 59, 0, time.UTC)
}

// FiscalYear returns the HUD fiscal year in effect at t. HUD fiscal years
// run October through September, so October 2024 is already FY2025.
func FiscalYear(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}
