package util

import (
	"testing"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

func TestCanonicalPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+5585999990001", "+5585999990001"},
		{"5585999990001", "+5585999990001"},
		{"whatsapp:+5585999990001", "+5585999990001"},
		{" (55) 85 99999-0001 ", "+5585999990001"},
		{"+1 (416) 555-0199", "+14165550199"},
	}
	for _, tc := range cases {
		got, err := CanonicalPhone(tc.in)
		if err != nil {
			t.Errorf("CanonicalPhone(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("CanonicalPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalPhoneErrors(t *testing.T) {
	if _, err := CanonicalPhone(""); err != models.ErrEmptyPhoneNumber {
		t.Errorf("expected ErrEmptyPhoneNumber, got %v", err)
	}
	if _, err := CanonicalPhone("whatsapp:"); err != models.ErrEmptyPhoneNumber {
		t.Errorf("expected ErrEmptyPhoneNumber for bare prefix, got %v", err)
	}
	for _, in := range []string{"123", "12345678901234567890", "abc"} {
		if _, err := CanonicalPhone(in); err != models.ErrInvalidPhoneNumber {
			t.Errorf("CanonicalPhone(%q): expected ErrInvalidPhoneNumber, got %v", in, err)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	cases := map[string]string{
		"123.456.789-01":     "12345678901",
		"12.345.678/0001-99": "12345678000199",
		"abc":                "",
		"":                   "",
	}
	for in, want := range cases {
		if got := DigitsOnly(in); got != want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", in, got, want)
		}
	}
}
