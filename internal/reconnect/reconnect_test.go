package reconnect

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{3, 5 * time.Second},
		{8, 15 * time.Second},
		{9, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRunDisabledReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Run(context.Background(), false, func(context.Context) error {
		calls++
		return boom
	}, nil)
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	old := Schedule
	Schedule = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { Schedule = old }()

	calls := 0
	var attempts []int
	err := Run(context.Background(), true, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 3 || len(attempts) != 2 || attempts[1] != 1 {
		t.Fatalf("calls=%d attempts=%v", calls, attempts)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Run(ctx, true, func(context.Context) error {
		cancel()
		return errors.New("dropped")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
