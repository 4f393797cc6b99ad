package util

import "testing"

func TestFoldDiacritics(t *testing.T) {
	cases := map[string]string{
		"Biển Số":     "Bien So",
		"định mức":    "dinh muc",
		"Giờ Máy":     "Gio May",
		"Đơn vị":      "Don vi",
		"plain ascii": "plain ascii",
	}
	for in, want := range cases {
		if got := FoldDiacritics(in); got != want {
			t.Errorf("FoldDiacritics(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"  Biển Số Xe  ": "biensoxe",
		"bien_so-xe":     "biensoxe",
		"Mã.Tài,Sản":     "mataisan",
		"ĐỊNH MỨC (giờ)": "dinhmucgio",
		"":               "",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanPlate(t *testing.T) {
	cases := map[string]string{
		" 29c-123.45 ": "29C-12345",
		"XE 01":        "XE01",
		"":             "",
	}
	for in, want := range cases {
		if got := CleanPlate(in); got != want {
			t.Errorf("CleanPlate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlateKey(t *testing.T) {
	if got := PlateKey(" Mã-01 ab "); got != "MA01AB" {
		t.Errorf("PlateKey = %q", got)
	}
}

func TestNormalizeSpaces(t *testing.T) {
	if got := NormalizeSpaces("  a \n b\t c  "); got != "a b c" {
		t.Errorf("NormalizeSpaces = %q", got)
	}
}
