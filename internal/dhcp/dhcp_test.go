package dhcp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordedCmd struct {
	name string
	args []string
}

func recorder(calls *[]recordedCmd, err error) func(context.Context, string, ...string) ([]byte, error) {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCmd{name: name, args: args})
		return nil, err
	}
}

func TestClient_CommandLines(t *testing.T) {
	tests := []struct {
		name string
		call func(*Client) error
		want []string
	}{
		{
			name: "release",
			call: func(c *Client) error { return c.Release(context.Background(), "wlan0") },
			want: []string{"-r", "wlan0"},
		},
		{
			name: "acquire",
			call: func(c *Client) error { return c.Acquire(context.Background(), "wlan0") },
			want: []string{"-1", "wlan0"},
		},
		{
			name: "stop",
			call: func(c *Client) error { return c.Stop(context.Background(), "wlan0") },
			want: []string{"-x", "wlan0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []recordedCmd
			c := New(WithRunner(recorder(&calls, nil)))

			if err := tt.call(c); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if len(calls) != 1 {
				t.Fatalf("command runs = %d, want 1", len(calls))
			}
			if calls[0].name != "dhclient" {
				t.Errorf("program = %q, want dhclient", calls[0].name)
			}
			if got := strings.Join(calls[0].args, " "); got != strings.Join(tt.want, " ") {
				t.Errorf("args = %q, want %q", got, strings.Join(tt.want, " "))
			}
		})
	}
}

func TestClient_WrapsRunnerError(t *testing.T) {
	cause := errors.New("exit status 1")
	var calls []recordedCmd
	c := New(WithRunner(recorder(&calls, cause)))

	err := c.Acquire(context.Background(), "wlan0")
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped %v", err, cause)
	}
	if err == nil || !strings.Contains(err.Error(), "wlan0") {
		t.Errorf("err = %v, want interface name in message", err)
	}
}
