package util

import "testing"

func TestBoolEnv(t *testing.T) {
	cases := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"banana", true, true},
		{" true ", false, true},
	}
	for _, c := range cases {
		t.Setenv("RSVPD_TEST_BOOL", c.value)
		if got := BoolEnv("RSVPD_TEST_BOOL", c.fallback); got != c.want {
			t.Errorf("BoolEnv(%q, %v) = %v, want %v", c.value, c.fallback, got, c.want)
		}
	}
}
