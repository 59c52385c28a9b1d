package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tc := range cases {
		t.Setenv("CENTRALFLOW_TEST_BOOL", tc.value)
		if got := ParseBoolEnv("CENTRALFLOW_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
		}
	}
}

func TestGetenvDefault(t *testing.T) {
	t.Setenv("CENTRALFLOW_TEST_STRING", "")
	if got := GetenvDefault("CENTRALFLOW_TEST_STRING", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for empty value, got %q", got)
	}
	t.Setenv("CENTRALFLOW_TEST_STRING", "set")
	if got := GetenvDefault("CENTRALFLOW_TEST_STRING", "fallback"); got != "set" {
		t.Errorf("expected env value to win, got %q", got)
	}
}
