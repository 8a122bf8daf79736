package schedule

import (
	"strings"
	"testing"
	"time"
)

func TestUpcoming(t *testing.T) {
	now := time.Date(2025, 11, 27, 11, 0, 0, 0, ist)

	got, err := DefaultRule.Upcoming(now, 3)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	want := []time.Time{
		time.Date(2025, 12, 27, 10, 45, 0, 0, ist),
		time.Date(2026, 1, 27, 10, 45, 0, 0, ist),
		time.Date(2026, 2, 27, 10, 45, 0, 0, ist),
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("Upcoming[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUpcomingAgreesWithNext(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, ist)
	for i := 0; i < 60; i++ {
		now := start.Add(time.Duration(i) * 7 * 24 * time.Hour)
		list, err := DefaultRule.Upcoming(now, 1)
		if err != nil {
			t.Fatalf("Upcoming: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("Upcoming(%s, 1) returned %d items", now, len(list))
		}
		if next := NextOccurrence(now); !list[0].Equal(next) {
			t.Fatalf("Upcoming(%s)[0] = %s, Next = %s", now, list[0], next)
		}
	}
}

func TestUpcomingInclusive(t *testing.T) {
	now := time.Date(2025, 8, 27, 10, 45, 0, 0, ist)
	got, err := DefaultRule.Upcoming(now, 1)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(now) {
		t.Fatalf("Upcoming at target = %v, want [%s]", got, now)
	}
}

func TestUpcomingEdgeCounts(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, ist)

	if got, err := DefaultRule.Upcoming(now, 0); err != nil || got != nil {
		t.Errorf("Upcoming(0) = %v, %v; want nil, nil", got, err)
	}
	got, err := DefaultRule.Upcoming(now, 10_000)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(got) != maxUpcoming {
		t.Errorf("len = %d, want cap %d", len(got), maxUpcoming)
	}
	if _, err := (Rule{Day: 31}).Upcoming(now, 1); err == nil {
		t.Error("expected error for invalid rule")
	}
}

func TestRRuleString(t *testing.T) {
	s, err := DefaultRule.RRuleString()
	if err != nil {
		t.Fatalf("RRuleString: %v", err)
	}
	for _, part := range []string{"FREQ=MONTHLY", "BYMONTHDAY=27", "BYHOUR=10", "BYMINUTE=45", "BYSECOND=0"} {
		if !strings.Contains(s, part) {
			t.Errorf("RRuleString() = %q, missing %q", s, part)
		}
	}
	if strings.Contains(s, "DTSTART") {
		t.Errorf("RRuleString() = %q, should not include DTSTART", s)
	}
}
