package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
)

// ComplianceWindowDays is the fixed policy threshold: a record processed in
// at most this many business days is within timeline. Not configurable.
const ComplianceWindowDays = 60

// BusinessDaysBetween counts Mon-Fri days from start to end, inclusive of
// both endpoints. A nil start yields nil; a nil end substitutes the current
// date; an end before start yields 0, never a negative count.
func BusinessDaysBetween(start, end *time.Time) *int {
	if start == nil {
		return nil
	}
	e := time.Now()
	if end != nil {
		e = *end
	}
	n := businessDays(*start, e)
	return &n
}

// dayOf normalizes to the wall-clock calendar date. Truncate would round to
// UTC-epoch day boundaries and shift dates for zones ahead of UTC.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func businessDays(start, end time.Time) int {
	day := dayOf(start)
	last := dayOf(end)
	if last.Before(day) {
		return 0
	}
	count := 0
	for !day.After(last) {
		wd := day.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// ClassifyTimeline maps an elapsed business-day count to the compliance
// classification. Nil passes through as nil (no timeline to classify).
func ClassifyTimeline(days *int) *models.Timeline {
	if days == nil {
		return nil
	}
	t := models.TimelineBeyond
	if *days <= ComplianceWindowDays {
		t = models.TimelineWithin
	}
	return &t
}

// TimelineStatus is one independently-computed compliance window.
type TimelineStatus struct {
	BusinessDays *int             `json:"business_days"`
	Timeline     *models.Timeline `json:"timeline"`
}

// ReportTimelines holds the three windows of one report. A report with no
// sub-records simply has nil sub-timelines.
type ReportTimelines struct {
	Report    TimelineStatus `json:"report"`
	Froo      TimelineStatus `json:"froo"`
	Secondary TimelineStatus `json:"secondary"`
}

// EvaluateTimelines computes each window independently: the report's own
// received-to-released span, the FROO received-to-endorsed span, and the
// secondary review's received-to-released span.
func EvaluateTimelines(r *models.Report) ReportTimelines {
	var out ReportTimelines
	if r == nil {
		return out
	}

	out.Report = evaluateWindow(r.DateReceivedByCenter, r.ReleasedDate)
	if r.FrooReport != nil {
		out.Froo = evaluateWindow(r.FrooReport.DateReceived, r.FrooReport.DateEndorsedToCdrr)
	}
	if r.CdrrSecondary != nil {
		out.Secondary = evaluateWindow(r.CdrrSecondary.DateReceived, r.CdrrSecondary.ReleasedDate)
	}
	return out
}

func evaluateWindow(start, end models.FlexDate) TimelineStatus {
	days := BusinessDaysBetween(start.Time(), end.Time())
	return TimelineStatus{
		BusinessDays: days,
		Timeline:     ClassifyTimeline(days),
	}
}
