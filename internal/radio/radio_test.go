package radio

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUnblock_CommandLine(t *testing.T) {
	var got string
	c := New(WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = name + " " + strings.Join(args, " ")
		return nil, nil
	}))

	if err := c.Unblock(context.Background()); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if want := "rfkill unblock wifi"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestUnblock_WrapsError(t *testing.T) {
	cause := errors.New("rfkill: cannot open /dev/rfkill")
	c := New(WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, cause
	}))

	if err := c.Unblock(context.Background()); !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}
