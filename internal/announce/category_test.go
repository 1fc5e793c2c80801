package announce

import "testing"

func TestCategoryNames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cat   Category
		name  string
		title string
	}{
		{Main, "main", "Ana Sayfa"},
		{Yadyok, "yadyok", "YADYOK"},
		{MIS, "mis", "MIS"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.name {
			t.Fatalf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.cat.Title(); got != tt.title {
			t.Fatalf("Title() = %q, want %q", got, tt.title)
		}
		if !tt.cat.Valid() {
			t.Fatalf("%s should be valid", tt.name)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()
	for _, c := range All {
		got, err := Parse(c.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.String(), err)
		}
		if got != c {
			t.Fatalf("Parse(%q) = %v, want %v", c.String(), got, c)
		}
	}
	if _, err := Parse("physics"); err == nil {
		t.Fatal("expected error for unknown category")
	}
	if Category(42).Valid() {
		t.Fatal("out-of-range category should not be valid")
	}
}
