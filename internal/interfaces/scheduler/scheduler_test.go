package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ScheduleTime
		wantErr bool
	}{
		{"03:30", ScheduleTime{Hour: 3, Minute: 30}, false},
		{"0:00", ScheduleTime{}, false},
		{"23:59", ScheduleTime{Hour: 23, Minute: 59}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		got, err := ParseScheduleTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScheduleTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RequiresScheduleTimes(t *testing.T) {
	if _, err := New(Config{}, zerolog.Nop()); err == nil {
		t.Error("New() without schedule times expected error")
	}
	if _, err := New(Config{ScheduleTimes: []string{"25:00"}}, zerolog.Nop()); err == nil {
		t.Error("New() with invalid schedule time expected error")
	}
}

func TestShouldRun_OncePerMinute(t *testing.T) {
	s, err := New(Config{ScheduleTimes: []string{"03:00", "15:30"}, WorkerCount: 1, QueueSize: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	at := time.Date(2024, 3, 10, 3, 0, 5, 0, time.UTC)
	if !s.shouldRun(at) {
		t.Error("shouldRun(03:00) = false, want true")
	}
	if s.shouldRun(at.Add(30 * time.Second)) {
		t.Error("shouldRun() fired twice in the same minute")
	}
	if s.shouldRun(at.Add(time.Minute)) {
		t.Error("shouldRun(03:01) = true, want false")
	}
	if !s.shouldRun(at.AddDate(0, 0, 1)) {
		t.Error("shouldRun() next day = false, want true")
	}
}

func TestNextRun(t *testing.T) {
	s, err := New(Config{ScheduleTimes: []string{"15:30", "03:00"}, WorkerCount: 1, QueueSize: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)},
		{time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := s.NextRun(tt.now); !got.Equal(tt.want) {
			t.Errorf("NextRun(%s) = %s, want %s", tt.now, got, tt.want)
		}
	}
}
