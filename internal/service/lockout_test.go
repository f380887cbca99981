package service

import (
	"testing"
	"time"
)

func TestLockoutState_IsLocked(t *testing.T) {
	now := time.Now().UTC()

	if (LockoutState{}).IsLocked(now) {
		t.Fatalf("empty state should not be locked")
	}

	past := now.Add(-time.Minute)
	if (LockoutState{LockUntil: &past}).IsLocked(now) {
		t.Fatalf("past lockUntil should not be locked")
	}

	future := now.Add(time.Minute)
	if !(LockoutState{LockUntil: &future}).IsLocked(now) {
		t.Fatalf("future lockUntil should be locked")
	}
}

func TestOnFailedAttempt_LocksAtThreshold(t *testing.T) {
	now := time.Now().UTC()
	state := LockoutState{}

	for i := 1; i <= 4; i++ {
		var remaining int
		state, remaining = OnFailedAttempt(state, now)
		if state.IsLocked(now) {
			t.Fatalf("locked after %d attempts", i)
		}
		if remaining != 5-i {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i, 5-i, remaining)
		}
	}

	state, remaining := OnFailedAttempt(state, now)
	if !state.IsLocked(now) {
		t.Fatalf("expected lock after 5 attempts")
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
	if got := state.LockUntil.Sub(now); got != 30*time.Minute {
		t.Fatalf("expected 30m lock, got %v", got)
	}
}

func TestOnFailedAttempt_RemainingFloorsAtZero(t *testing.T) {
	now := time.Now().UTC()
	state := LockoutState{LoginAttempts: 7}

	state, remaining := OnFailedAttempt(state, now)
	if remaining != 0 {
		t.Fatalf("expected floor at 0, got %d", remaining)
	}
	if !state.IsLocked(now) {
		t.Fatalf("expected lock above threshold")
	}
}

func TestOnSuccessfulAttempt_ClearsLock(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(10 * time.Minute)
	state := LockoutState{LoginAttempts: 4, LockUntil: &until}

	state = OnSuccessfulAttempt(state)
	if state.LoginAttempts != 0 || state.LockUntil != nil {
		t.Fatalf("expected reset state, got %+v", state)
	}
	if state.IsLocked(now) {
		t.Fatalf("should not be locked after success")
	}
}

func TestOnPasswordReset_UnlocksIndependently(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(25 * time.Minute)
	state := LockoutState{LoginAttempts: 5, LockUntil: &until}

	state = OnPasswordReset(state)
	if state.IsLocked(now) {
		t.Fatalf("password reset must unlock the account")
	}
	if state.LoginAttempts != 0 {
		t.Fatalf("expected attempts reset, got %d", state.LoginAttempts)
	}
}

func TestMinutesRemaining_RoundsUp(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(29*time.Minute + 30*time.Second)
	state := LockoutState{LockUntil: &until}

	if got := state.MinutesRemaining(now); got != 30 {
		t.Fatalf("expected 30 minutes, got %d", got)
	}
	if got := (LockoutState{}).MinutesRemaining(now); got != 0 {
		t.Fatalf("expected 0 for unlocked state, got %d", got)
	}
}
