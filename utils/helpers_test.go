package utils

import (
	"reflect"
	"testing"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) bool
		value string
		want  bool
	}{
		{"role user", IsValidRole, "user", true},
		{"role admin", IsValidRole, "admin", true},
		{"role manager", IsValidRole, "manager", true},
		{"role superuser", IsValidRole, "superuser", false},
		{"role empty", IsValidRole, "", false},
		{"status pending", IsValidOrderStatus, "pending", true},
		{"status delivered", IsValidOrderStatus, "delivered", true},
		{"status refunded", IsValidOrderStatus, "refunded", false},
		{"metric visits", IsValidTrendMetric, "visits", true},
		{"metric conversion", IsValidTrendMetric, "conversion", true},
		{"metric bounce", IsValidTrendMetric, "bounce", false},
		{"sort price", IsValidProductSort, "price", true},
		{"sort averageRating", IsValidProductSort, "averageRating", true},
		{"sort injection", IsValidProductSort, "price; drop", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.value); got != tt.want {
				t.Errorf("got %v for %q, want %v", got, tt.value, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	if ts, err := ParseDate("2026-01-15T10:30:00Z"); err != nil {
		t.Errorf("RFC3339 input rejected: %v", err)
	} else if ts.Hour() != 10 {
		t.Errorf("expected hour 10, got %d", ts.Hour())
	}

	ts, err := ParseDate("2026-01-15")
	if err != nil {
		t.Fatalf("plain date rejected: %v", err)
	}
	if y, m, d := ts.Date(); y != 2026 || m != 1 || d != 15 {
		t.Errorf("parsed to %v, want 2026-01-15", ts)
	}

	if _, err := ParseDate("15/01/2026"); err == nil {
		t.Error("expected error for slash formatted date")
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"trims and drops empties", "wood, , comfort ,modern", []string{"wood", "comfort", "modern"}},
		{"empty string", "", []string{}},
		{"only separators", " , ,", []string{}},
		{"single tag", "wood", []string{"wood"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.raw)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
