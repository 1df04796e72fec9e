package classroom

import (
	"testing"
	"time"
)

func TestClassroomTimeline(t *testing.T) {
	now := time.Date(2021, time.March, 15, 12, 0, 0, 0, time.UTC)
	weeksAgo := func(n int) time.Time { return now.Add(-time.Duration(n) * 7 * 24 * time.Hour) }

	tests := []struct {
		name     string
		start    time.Time
		duration int
		want     Timeline
	}{
		{name: "running", start: weeksAgo(2), duration: 4, want: TimelineOngoing},
		{name: "past end", start: weeksAgo(2), duration: 1, want: TimelineCompleted},
		{name: "ends exactly now", start: weeksAgo(4), duration: 4, want: TimelineOngoing},
		{name: "not started yet", start: now.Add(24 * time.Hour), duration: 1, want: TimelineOngoing},
		{name: "zero start falls back to ongoing", duration: 4, want: TimelineOngoing},
		{name: "zero duration falls back to ongoing", start: weeksAgo(10), want: TimelineOngoing},
		{name: "negative duration falls back to ongoing", start: weeksAgo(10), duration: -1, want: TimelineOngoing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := Classroom{StartTime: tt.start, Duration: tt.duration}
			if got := cls.Timeline(now); got != tt.want {
				t.Errorf("Timeline() = %v, want %v", got, tt.want)
			}
		})
	}
}
