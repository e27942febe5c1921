package lab

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDetectorWait(t *testing.T) {
	tests := []struct {
		name      string
		outputs   []string // returned in order, last one repeats
		failFirst int      // number of leading capture errors
		timeout   time.Duration
		want      bool
		maxPolls  int
	}{
		{"immediate", []string{"boot\nListening on :8000\n"}, 0, time.Second, true, 1},
		{"after three polls", []string{"", "boot", "Listening on :8000"}, 0, time.Second, true, 3},
		{"capture errors are not fatal", []string{"Listening on"}, 2, time.Second, true, 3},
		{"literal match only", []string{"Listening.on"}, 0, time.Second, false, 6},
		{"never appears", []string{"still booting"}, 0, time.Second, false, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			polls := 0
			src := func(ctx context.Context) (string, error) {
				polls++
				if polls <= tt.failFirst {
					return "", errCapture
				}
				i := polls - tt.failFirst - 1
				if i >= len(tt.outputs) {
					i = len(tt.outputs) - 1
				}
				return tt.outputs[i], nil
			}

			d := &Detector{Clock: clock, Interval: 200 * time.Millisecond}
			got, err := d.Wait(context.Background(), src, "Listening on", tt.timeout)
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if got != tt.want {
				t.Errorf("Wait() = %v, want %v", got, tt.want)
			}
			if polls > tt.maxPolls {
				t.Errorf("polled %d times, want at most %d", polls, tt.maxPolls)
			}
			if clock.slept() > tt.timeout {
				t.Errorf("slept %v, exceeds timeout %v", clock.slept(), tt.timeout)
			}
		})
	}
}

func TestDetectorTimeoutIsBounded(t *testing.T) {
	clock := newFakeClock()
	d := &Detector{Clock: clock, Interval: 300 * time.Millisecond}
	src := func(ctx context.Context) (string, error) { return "", nil }

	start := clock.Now()
	ok, err := d.Wait(context.Background(), src, "x", time.Second)
	if err != nil || ok {
		t.Fatalf("Wait() = %v, %v", ok, err)
	}
	if elapsed := clock.Now().Sub(start); elapsed != time.Second {
		t.Errorf("elapsed %v, want exactly the timeout", elapsed)
	}
	// Last sleep is clipped to the deadline.
	if last := clock.sleeps[len(clock.sleeps)-1]; last != 100*time.Millisecond {
		t.Errorf("last sleep = %v, want 100ms", last)
	}
}

func TestDetectorZeroTimeoutPollsOnce(t *testing.T) {
	clock := newFakeClock()
	polls := 0
	src := func(ctx context.Context) (string, error) { polls++; return "", nil }

	ok, err := (&Detector{Clock: clock}).Wait(context.Background(), src, "x", 0)
	if err != nil || ok {
		t.Fatalf("Wait() = %v, %v", ok, err)
	}
	if polls != 1 || len(clock.sleeps) != 0 {
		t.Errorf("polls=%d sleeps=%v", polls, clock.sleeps)
	}
}

func TestDetectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := newFakeClock()
	clock.onSleep = cancel
	src := func(ctx context.Context) (string, error) { return "", nil }

	_, err := (&Detector{Clock: clock}).Wait(ctx, src, "x", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPaneSource(t *testing.T) {
	mux := newFakeMux()
	ctx := context.Background()
	_ = mux.NewSession(ctx, "lab", "shell", "", 0, 0)
	_ = mux.NewWindow(ctx, "lab", "master", "")
	mux.sessions["lab"][1].output.WriteString("hello")

	out, err := PaneSource(mux, "lab", "master", 200)(ctx)
	if err != nil || out != "hello" {
		t.Errorf("PaneSource() = %q, %v", out, err)
	}
}

func TestRealClockSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (RealClock{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if err := (RealClock{}).Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v", err)
	}
}
