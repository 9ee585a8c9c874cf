package domain

import (
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	cases := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"High", PriorityHigh, false},
		{"medium", PriorityMedium, false},
		{" LOW ", PriorityLow, false},
		{"urgent", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParsePriority(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePriority(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePriority(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("active"); err != nil {
		t.Errorf("unexpected error for active: %v", err)
	}
	if _, err := ParseStatus("Completed"); err != nil {
		t.Errorf("unexpected error for Completed: %v", err)
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestPriorityWeight(t *testing.T) {
	if PriorityHigh.Weight() >= PriorityMedium.Weight() {
		t.Error("high priority should weigh less than medium")
	}
	if PriorityMedium.Weight() >= PriorityLow.Weight() {
		t.Error("medium priority should weigh less than low")
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 11, 14, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name    string
		dueDate string
		want    bool
	}{
		{"far past", "01-01-2000", true},
		{"yesterday", "13-11-2024", true},
		{"today is not overdue", "14-11-2024", false},
		{"tomorrow", "15-11-2024", false},
		{"unparseable is fail-safe", "not-a-date", false},
		{"wrong layout is fail-safe", "2024-11-01", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOverdue(tc.dueDate, now); got != tc.want {
				t.Errorf("IsOverdue(%q) = %v, want %v", tc.dueDate, got, tc.want)
			}
		})
	}
}

func TestParseDueDate(t *testing.T) {
	due, err := ParseDueDate("05-12-2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if due.Day() != 5 || due.Month() != time.December || due.Year() != 2024 {
		t.Errorf("unexpected date: %v", due)
	}

	if _, err := ParseDueDate("tomorrow"); err == nil {
		t.Error("expected error for non-date text")
	}
	if _, err := ParseDueDate("2024-12-05"); err == nil {
		t.Error("expected error for ISO layout")
	}
}
