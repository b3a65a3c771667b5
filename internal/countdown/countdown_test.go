package countdown

import (
	"testing"
	"time"
)

func TestComputePastTargetIsZero(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	u := Compute(now.Add(-time.Hour), now)

	if u.Days != 0 || u.Hours != 0 || u.Minutes != 0 || u.Seconds != 0 {
		t.Errorf("Expected all-zero units, got %+v", u)
	}
	if !u.Expired {
		t.Error("Expected expired to be true")
	}
	if u.Pad() != [4]string{"00", "00", "00", "00"} {
		t.Errorf("Expected padded zeros, got %v", u.Pad())
	}
}

func TestComputeExactTargetIsZero(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	if u := Compute(now, now); !u.Expired || u.TotalSeconds() != 0 {
		t.Errorf("Expected expired zero units, got %+v", u)
	}
}

func TestComputeZeroTarget(t *testing.T) {
	if u := Compute(time.Time{}, time.Now()); !u.Expired || u.TotalSeconds() != 0 {
		t.Errorf("Expected expired zero units, got %+v", u)
	}
}

func TestComputeSplitsUnits(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	target := now.Add(3*24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second + 900*time.Millisecond)

	u := Compute(target, now)
	want := Units{Days: 3, Hours: 4, Minutes: 5, Seconds: 6}
	if u != want {
		t.Errorf("Expected %+v, got %+v", want, u)
	}
	if u.Pad() != [4]string{"03", "04", "05", "06"} {
		t.Errorf("Unexpected padding %v", u.Pad())
	}
	if u.TotalSeconds() != 3*86400+4*3600+5*60+6 {
		t.Errorf("Unexpected total seconds %d", u.TotalSeconds())
	}
}

func TestPadLongCountdown(t *testing.T) {
	u := Units{Days: 123}
	if u.Pad()[0] != "123" {
		t.Errorf("Expected '123', got '%s'", u.Pad()[0])
	}
}
