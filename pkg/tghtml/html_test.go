package tghtml

import "testing"

func TestEscReservedChars(t *testing.T) {
	t.Parallel()
	got := Esc(`<b> & "quoted" announcement`).String()
	want := `&lt;b&gt; &amp; &#34;quoted&#34; announcement`
	if got != want {
		t.Fatalf("Esc = %q, want %q", got, want)
	}
}

func TestJoinHSkipsBlank(t *testing.T) {
	t.Parallel()
	got := JoinH("\n", B("a"), Raw("  "), Esc("b")).String()
	if got != "<b>a</b>\nb" {
		t.Fatalf("JoinH = %q", got)
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"duyuru", 10, "duyuru"},
		{"duyuru", 6, "duyuru"},
		{"duyurular", 6, "duyuru…"},
		{"öğrenci", 3, "öğr…"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncRunes(tt.in, tt.n); got != tt.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
