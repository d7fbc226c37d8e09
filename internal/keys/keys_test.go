package keys

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for _, p := range All() {
		got, err := Parse(p.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", p.String(), err)
		}
		if got != p {
			t.Errorf("Parse(%q) = %v, want %v", p.String(), got, p)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("caps-lock"); err == nil {
		t.Error("Parse(\"caps-lock\") succeeded, want error")
	}
}

func TestAllCount(t *testing.T) {
	if len(All()) != Count {
		t.Errorf("All() returned %d keys, want %d", len(All()), Count)
	}
	if Count != 8 {
		t.Errorf("Count = %d, want 8", Count)
	}
}

func TestStringUnknown(t *testing.T) {
	if got := Physical(200).String(); got != "unknown" {
		t.Errorf("Physical(200).String() = %q, want \"unknown\"", got)
	}
}
