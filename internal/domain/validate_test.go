package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type sample struct {
	Name  string `json:"name" validate:"required,max=5"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Kind  string `json:"kind" validate:"oneof=a b"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantMsg string
	}{
		{"valid", sample{Name: "ok", Kind: "a"}, ""},
		{"missing name", sample{Kind: "a"}, "name is required"},
		{"long name", sample{Name: "toolong", Kind: "a"}, "name must be at most 5 characters"},
		{"bad email", sample{Name: "ok", Email: "nope", Kind: "a"}, "email must be a valid email address"},
		{"bad kind", sample{Name: "ok", Kind: "c"}, "kind must be one of: a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.HasSuffix(err.Error(), tt.wantMsg) {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("lease_start", "2024-03-15")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// The date as written wins over the UTC instant.
	for _, ts := range []string{"2024-03-15T10:00:00+02:00", "2024-03-15T01:00:00+02:00", "2024-03-15T23:30:00-05:00"} {
		got, err = ParseDate("lease_start", ts)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("ParseDate(%q): expected %v, got %v", ts, want, got)
		}
	}

	for _, bad := range []string{"", "15/03/2024", "2024-13-01"} {
		if _, err := ParseDate("lease_start", bad); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseDate(%q): expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, err := ParseOptionalDate("lease_end", "  ")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
	got, err = ParseOptionalDate("lease_end", "2025-01-01")
	if err != nil || got == nil {
		t.Fatalf("expected date, got %v, %v", got, err)
	}
}

func TestCheckAmount(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"0", true},
		{"1250.5", true},
		{"1250.50", true},
		{"1250.500", true},
		{"999999999999.99", true},
		{"0.001", false},
		{"10.125", false},
		{"1000000000000", false},
		{"1e15", false},
		{"-1000000000000", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := CheckAmount("amount", decimal.RequireFromString(tt.in))
			if tt.ok && err != nil {
				t.Fatalf("expected %s accepted, got %v", tt.in, err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation for %s, got %v", tt.in, err)
			}
		})
	}
}
