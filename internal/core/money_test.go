package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true}, // zero is a valid (unallocated) amount
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Money{Cents: 3334}
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "33.34" {
		t.Fatalf("expected 33.34, got %s", b)
	}

	var back Money
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Cents != 3334 {
		t.Fatalf("expected 3334 cents, got %d", back.Cents)
	}
}

func TestMoneyUnmarshalRejectsGarbage(t *testing.T) {
	var m Money
	if err := m.UnmarshalJSON([]byte("12,50")); err == nil {
		t.Fatal("expected error for non-JSON number")
	}
}

func TestMoneyUnmarshalQuotedDecimal(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{`"12.34"`, 1234, true},
		{`"12,34"`, 1234, true},
		{`"12.346"`, 1235, true},
		{`"0"`, 0, true},
		{`""`, 0, true},
		{`"-5"`, 0, false},
		{`"abc"`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := m.UnmarshalJSON([]byte(tc.in))
		if tc.ok != (err == nil) {
			t.Errorf("UnmarshalJSON(%s) error = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && m.Cents != tc.cents {
			t.Errorf("UnmarshalJSON(%s) = %d cents, want %d", tc.in, m.Cents, tc.cents)
		}
	}
}
