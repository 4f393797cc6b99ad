package util

import "testing"

func TestParseFlexibleDateSerial(t *testing.T) {
	got, ok := ParseFlexibleDate("45000")
	if !ok {
		t.Fatal("serial 45000 should parse")
	}
	if DateString(got) != "2023-03-15" {
		t.Errorf("serial 45000 = %s, want 2023-03-15", DateString(got))
	}

	if _, ok := ParseFlexibleDate("999"); ok {
		t.Error("serials under 1000 must be rejected")
	}
	if _, ok := ParseFlexibleDate("0"); ok {
		t.Error("serial 0 must be rejected")
	}
}

func TestParseFlexibleDateDayMonthYear(t *testing.T) {
	cases := map[string]string{
		"15/03/2024": "2024-03-15",
		"15/03/24":   "2024-03-15",
		"15-03-2024": "2024-03-15",
		"15.03.2024": "2024-03-15",
		"01/01/2020": "2020-01-01",
		"2024-03-15": "2024-03-15",
	}
	for in, want := range cases {
		got, ok := ParseFlexibleDate(in)
		if !ok {
			t.Errorf("ParseFlexibleDate(%q) failed", in)
			continue
		}
		if DateString(got) != want {
			t.Errorf("ParseFlexibleDate(%q) = %s, want %s", in, DateString(got), want)
		}
	}
}

func TestParseFlexibleDateInvalid(t *testing.T) {
	for _, in := range []string{"", "not a date", "31/02/2024", "00/03/2024", "15/13/2024", "32/01/2024", "15/03"} {
		if _, ok := ParseFlexibleDate(in); ok {
			t.Errorf("ParseFlexibleDate(%q) should fail", in)
		}
	}
}
