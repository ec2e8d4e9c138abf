package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08031234567", "+2348031234567"},
		{"0803 123 4567", "+2348031234567"},
		{"+234 803 123 4567", "+2348031234567"},
		{"2348031234567", "+2348031234567"},
		{"N/A", ""},
		{"", ""},
		{"not a number", ""},
	}

	for _, c := range cases {
		if got := NormalizeE164(c.in); got != c.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsWhatsAppCapable(t *testing.T) {
	if !IsWhatsAppCapable("+2348031234567") {
		t.Fatal("nigerian mobile number should be whatsapp capable")
	}
	if IsWhatsAppCapable("garbage") {
		t.Fatal("unparseable number must not be whatsapp capable")
	}
}
