package pinger

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"
)

func TestPing_CommandLine(t *testing.T) {
	var got string
	p := New(WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = name + " " + strings.Join(args, " ")
		return nil, nil
	}))

	err := p.Ping(context.Background(), netip.MustParseAddr("8.8.8.8"), 2*time.Second)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if want := "ping -c 1 -W 2 8.8.8.8"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestPing_SubSecondTimeoutRoundsUp(t *testing.T) {
	var got string
	p := New(WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = name + " " + strings.Join(args, " ")
		return nil, nil
	}))

	if err := p.Ping(context.Background(), netip.MustParseAddr("10.42.0.30"), 300*time.Millisecond); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !strings.Contains(got, "-W 1") {
		t.Errorf("command = %q, want minimum 1 second reply timeout", got)
	}
}

func TestPing_NoReplyIsError(t *testing.T) {
	cause := errors.New("exit status 1")
	p := New(WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, cause
	}))

	err := p.Ping(context.Background(), netip.MustParseAddr("10.42.0.30"), time.Second)
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped runner error", err)
	}
}
