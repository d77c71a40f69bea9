package caixa

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2026-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Year() != 2026 || m.Month() != time.January {
		t.Fatalf("unexpected month: %v", m)
	}
	if m.String() != "2026-01" {
		t.Fatalf("round trip: %q", m.String())
	}
	for _, bad := range []string{"", "2026", "2026-13", "26-01", "2026/01"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMonthZeroValue(t *testing.T) {
	var zero Month
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if zero.String() != "" {
		t.Fatalf("zero month formats as %q", zero.String())
	}
	if !zero.Before(MustParseMonth("0001-01")) {
		t.Fatal("zero month should sort before every real month")
	}
}

func TestMonthNextPrev(t *testing.T) {
	dec := MustParseMonth("2025-12")
	jan := dec.Next()
	if jan.String() != "2026-01" {
		t.Fatalf("next of 2025-12 = %q", jan.String())
	}
	if jan.Prev().String() != "2025-12" {
		t.Fatalf("prev of 2026-01 = %q", jan.Prev().String())
	}
	if !dec.Before(jan) || !jan.After(dec) || jan.Equal(dec) {
		t.Fatal("ordering across year boundary broken")
	}
}

func TestMonthJSON(t *testing.T) {
	type holder struct {
		M Month `json:"m"`
	}
	b, err := json.Marshal(holder{M: MustParseMonth("2026-07")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"m":"2026-07"}` {
		t.Fatalf("unexpected JSON: %s", b)
	}
	var h holder
	if err := json.Unmarshal([]byte(`{"m":"2026-07"}`), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !h.M.Equal(MustParseMonth("2026-07")) {
		t.Fatalf("round trip: %v", h.M)
	}
	if err := json.Unmarshal([]byte(`{"m":""}`), &h); err != nil {
		t.Fatalf("empty month: %v", err)
	}
	if !h.M.IsZero() {
		t.Fatalf("empty string should decode to zero month, got %v", h.M)
	}
}

func TestMonthOf(t *testing.T) {
	d := time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC)
	if MonthOf(d).String() != "2026-03" {
		t.Fatalf("MonthOf = %q", MonthOf(d).String())
	}
}
