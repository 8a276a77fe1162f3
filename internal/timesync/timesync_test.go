package timesync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beevik/ntp"
)

func TestSyncer_CommandLines(t *testing.T) {
	var lines []string
	s := New(WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		lines = append(lines, name+" "+strings.Join(args, " "))
		return []byte("Reference ID : 0A2A001E\nStratum : 2\n"), nil
	}))

	ctx := context.Background()
	if err := s.Step(ctx); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := s.Burst(ctx); err != nil {
		t.Fatalf("Burst: %v", err)
	}
	tracking, err := s.Tracking(ctx)
	if err != nil {
		t.Fatalf("Tracking: %v", err)
	}

	want := []string{
		"chronyc -a makestep",
		"chronyc -a burst 4/4",
		"chronyc tracking",
	}
	if len(lines) != len(want) {
		t.Fatalf("command count = %d, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
	if !strings.Contains(tracking, "Stratum : 2") {
		t.Errorf("tracking = %q, want raw chronyc output", tracking)
	}
}

func TestOffset_UsesInjectedQuery(t *testing.T) {
	s := New(WithQuery(func(host string) (*ntp.Response, error) {
		if host != "10.42.0.30" {
			t.Errorf("query host = %q, want supervisor address", host)
		}
		return &ntp.Response{ClockOffset: 42 * time.Millisecond, Stratum: 2}, nil
	}))

	off, err := s.Offset("10.42.0.30")
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if off != 42*time.Millisecond {
		t.Errorf("offset = %v, want 42ms", off)
	}
}

func TestOffset_QueryFailure(t *testing.T) {
	cause := errors.New("no route to host")
	s := New(WithQuery(func(string) (*ntp.Response, error) {
		return nil, cause
	}))

	if _, err := s.Offset("10.42.0.30"); !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped query error", err)
	}
}

func TestStep_WrapsError(t *testing.T) {
	cause := errors.New("506 Cannot talk to daemon")
	s := New(WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, cause
	}))

	if err := s.Step(context.Background()); !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}
