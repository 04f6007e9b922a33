package utils

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254 712 345 678", "254712345678"},
		{"(0712) 345-678", "254712345678"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if err != nil {
			t.Fatalf("NormalizePhone(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhoneRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "07123abc78", "12", "0712345678901234"} {
		if _, err := NormalizePhone(in); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("NormalizePhone(%q): expected ErrInvalidPhone, got %v", in, err)
		}
	}
}
