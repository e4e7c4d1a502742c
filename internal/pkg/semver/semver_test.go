package semver

import "testing"

func TestIsValid(t *testing.T) {
	valid := []string{
		"1.0.0",
		"0.0.1",
		"10.20.30",
		"1.2.3-beta",
		"1.2.3-beta.1",
		"1.2.3+build.42",
		"1.2.3-rc.1+build.42",
		" 1.0.0 ",
	}
	for _, v := range valid {
		if !IsValid(v) {
			t.Fatalf("expected %q to be valid", v)
		}
	}

	invalid := []string{
		"",
		"1",
		"1.0",
		"v1.0.0",
		"1.0.0.0",
		"1.0.x",
		"one.two.three",
		"1.2.3 beta",
	}
	for _, v := range invalid {
		if IsValid(v) {
			t.Fatalf("expected %q to be invalid", v)
		}
	}
}

func TestParse(t *testing.T) {
	major, minor, patch, ok := Parse("2.14.9-rc.1")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if major != 2 || minor != 14 || patch != 9 {
		t.Fatalf("got %d.%d.%d", major, minor, patch)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.0.10", "1.0.9", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.10.0", "1.9.0", 1},
		// Unparseable input falls back to string comparison.
		{"abc", "abd", -1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Fatalf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}

	if !IsNewer("1.0.10", "1.0.9") {
		t.Fatal("expected 1.0.10 to be newer than 1.0.9")
	}
	if IsNewer("1.0.9", "1.0.10") {
		t.Fatal("expected 1.0.9 not to be newer than 1.0.10")
	}
}
