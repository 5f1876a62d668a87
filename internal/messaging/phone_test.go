package messaging

import "testing"

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164(" +234 (801) 234-5678 "); got != "+2348012345678" {
		t.Fatalf("unexpected value %q", got)
	}
	if got := NormalizeE164(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := NormalizeE164("abc"); got != "" {
		t.Fatalf("expected empty for non-digits, got %q", got)
	}
}

func TestFormatNigerian(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08012345678", "+2348012345678"},
		{"+2348012345678", "+2348012345678"},
		{"2348012345678", "+2348012345678"},
		{"8012345678", "+2348012345678"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatNigerian(tc.in); got != tc.want {
			t.Fatalf("FormatNigerian(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePhone(t *testing.T) {
	if got := sanitizePhone(" +1 (555) 123-4567 "); got != "15551234567" {
		t.Fatalf("unexpected digits %q", got)
	}
}
