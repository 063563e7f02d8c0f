package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"edger/internal/service"
)

// Monday 19 October 2026.
func day(d, hour, minute int) time.Time {
	return time.Date(2026, 10, d, hour, minute, 0, 0, time.UTC)
}

func plannerAt(now time.Time) *Planner {
	p := NewPlanner(time.UTC, 9, 18)
	p.Now = func() time.Time { return now }
	return p
}

func task(period, priority string) service.TaskRequest {
	return service.TaskRequest{
		Title:   "Finish slides",
		Type:    service.TaskTodo,
		Context: service.TaskContext{Prompt: "final pass", Priority: priority},
		Period:  period,
	}
}

func TestShouldCreateEvent(t *testing.T) {
	tests := []struct {
		period   string
		priority string
		want     bool
	}{
		{"Today", "low", true},
		{"by tomorrow", "medium", true},
		{"sometime THIS WEEK", "medium", true},
		{"next week", "low", true},
		{"deadline 10/31", "low", true},
		{"daily", "High", true},
		{"daily", "urgent", true},
		{"daily", "very high", false},
		{"weekly", "medium", false},
	}
	for _, tt := range tests {
		t.Run(tt.period+"/"+tt.priority, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldCreateEvent(task(tt.period, tt.priority)))
		})
	}
}

func TestDuration(t *testing.T) {
	email := task("today", "high")
	email.Type = service.TaskEmail
	assert.Equal(t, 30*time.Minute, Duration(email))
	assert.Equal(t, 90*time.Minute, Duration(task("today", "URGENT")))
	assert.Equal(t, 60*time.Minute, Duration(task("today", "medium")))
}

func TestPriorityLevel(t *testing.T) {
	assert.Equal(t, "high", PriorityLevel("Critical"))
	assert.Equal(t, "high", PriorityLevel("very high"))
	assert.Equal(t, "low", PriorityLevel("optional"))
	assert.Equal(t, "low", PriorityLevel("LOW"))
	assert.Equal(t, "medium", PriorityLevel(""))
	assert.Equal(t, "medium", PriorityLevel("normal"))
}

func TestNextAvailableSlot(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		from time.Time
		want time.Time
	}{
		{"rounds up to next hour", day(19, 10, 20), day(19, 10, 20), day(19, 11, 0)},
		{"exact hour still moves on", day(19, 10, 0), day(19, 10, 0), day(19, 11, 0)},
		{"before working hours", day(19, 7, 10), day(19, 7, 10), day(19, 9, 0)},
		{"after working hours", day(19, 17, 30), day(19, 17, 30), day(20, 9, 0)},
		{"late evening", day(19, 22, 5), day(19, 22, 5), day(20, 9, 0)},
		{"future from", day(19, 10, 20), day(21, 14, 45), day(21, 15, 0)},
		{"past from uses now", day(19, 10, 20), day(18, 8, 0), day(19, 11, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plannerAt(tt.now).NextAvailableSlot(tt.from))
		})
	}
}

func TestNextWeekday(t *testing.T) {
	assert.Equal(t, day(20, 9, 0), plannerAt(day(19, 15, 0)).NextWeekday(), "monday")
	assert.Equal(t, day(24, 9, 0), plannerAt(day(23, 15, 0)).NextWeekday(), "friday moves to the next day")
	assert.Equal(t, day(26, 9, 0), plannerAt(day(24, 15, 0)).NextWeekday(), "saturday")
	assert.Equal(t, day(26, 9, 0), plannerAt(day(25, 15, 0)).NextWeekday(), "sunday")
}

func TestStart(t *testing.T) {
	p := plannerAt(day(19, 10, 20))

	tests := []struct {
		period string
		want   time.Time
		ok     bool
	}{
		{"today", day(19, 11, 0), true},
		{"tomorrow", day(20, 9, 0), true},
		{"this week", day(20, 9, 0), true},
		{"next week", day(26, 9, 0), true},
		{"deadline 10/31", day(31, 9, 0), true},
		{"deadline 3 jan", time.Date(2027, 1, 3, 9, 0, 0, 0, time.UTC), true},
		{"deadline 10/19", time.Date(2027, 10, 19, 9, 0, 0, 0, time.UTC), true},
		{"deadline 25 Oct", day(25, 9, 0), true},
		{"deadline 2/31", day(19, 11, 0), true},
		{"deadline 13/5", day(19, 11, 0), true},
		{"deadline soon", day(19, 11, 0), true},
		{"whenever", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, ok := p.Start(task(tt.period, "high"))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescription(t *testing.T) {
	tk := task("today", "high")
	want := "Task: Finish slides\n\nType: TODO\nPriority: high\nPeriod: today\n\nDetails: final pass\n\n\n" + Trailer
	assert.Equal(t, want, Description(tk))

	tk.Context.URL = "https://example.com"
	want = "Task: Finish slides\n\nType: TODO\nPriority: high\nPeriod: today\n\nDetails: final pass\n\nURL: https://example.com\n\n" + Trailer
	assert.Equal(t, want, Description(tk))
}
