package timeutil

import (
	"testing"
	"time"
)

func TestMockClock_AdvanceMovesNow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(250 * time.Millisecond)

	if got := clock.Since(start); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms elapsed, got %v", got)
	}
}

func TestMockClock_TickerFiresWhenDue(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	clock.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("Ticker fired before its period elapsed")
	default:
	}

	clock.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("Expected ticker to fire after 100ms")
	}
}

func TestMockClock_StoppedTickerIsSilent(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(10 * time.Millisecond)
	ticker.Stop()

	clock.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("Stopped ticker should not fire")
	default:
	}
}

func TestRealClock(t *testing.T) {
	var clock Clock = RealClock{}
	before := clock.Now()
	if clock.Since(before) < 0 {
		t.Error("Since should never be negative")
	}
	ticker := clock.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("Real ticker did not fire")
	}
}
