package ui

import "testing"

func TestEnvTruthyValues(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "one", value: "1", want: true},
		{name: "true", value: "true", want: true},
		{name: "yes", value: "yes", want: true},
		{name: "on", value: "on", want: true},
		{name: "zero", value: "0", want: false},
		{name: "false", value: "false", want: false},
		{name: "empty", value: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("MESHUP_TEST_TRUTHY", tc.value)
			if got := envTruthy("MESHUP_TEST_TRUTHY"); got != tc.want {
				t.Fatalf("envTruthy() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectInteractiveModeForced(t *testing.T) {
	if detectInteractiveMode(true) {
		t.Fatal("detectInteractiveMode(true) = true, want false")
	}
}

func TestDetectInteractiveModeHonorsCI(t *testing.T) {
	t.Setenv("CI", "true")
	if detectInteractiveMode(false) {
		t.Fatal("detectInteractiveMode() = true with CI=true, want false")
	}
}

func TestDetectInteractiveModeHonorsDumbTerm(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("NO_INTERACTION", "")
	t.Setenv("TERM", "dumb")
	if detectInteractiveMode(false) {
		t.Fatal("detectInteractiveMode() = true with TERM=dumb, want false")
	}
}
