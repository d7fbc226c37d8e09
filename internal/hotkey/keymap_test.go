package hotkey

import "testing"

func TestParseModifiers(t *testing.T) {
	mods, err := ParseModifiers([]string{"ctrl", "ALT"})
	if err != nil {
		t.Fatalf("ParseModifiers: %v", err)
	}
	if len(mods) != 2 {
		t.Errorf("got %d modifiers, want 2", len(mods))
	}

	if _, err := ParseModifiers([]string{"hyper"}); err == nil {
		t.Error("ParseModifiers accepted unknown modifier")
	}
}

func TestParseKey(t *testing.T) {
	for _, name := range []string{"k", "space", "f5", "return"} {
		if _, err := ParseKey(name); err != nil {
			t.Errorf("ParseKey(%q): %v", name, err)
		}
	}
	if _, err := ParseKey("num-lock"); err == nil {
		t.Error("ParseKey accepted unknown key")
	}
}

func TestJSCodeToKeyName(t *testing.T) {
	cases := map[string]string{
		"KeyR":   "r",
		"Space":  "space",
		"F5":     "f5",
		"Digit3": "3",
	}
	for code, want := range cases {
		got, err := JSCodeToKeyName(code)
		if err != nil {
			t.Errorf("JSCodeToKeyName(%q): %v", code, err)
			continue
		}
		if got != want {
			t.Errorf("JSCodeToKeyName(%q) = %q, want %q", code, got, want)
		}
	}
	if _, err := JSCodeToKeyName("MediaPlayPause"); err == nil {
		t.Error("JSCodeToKeyName accepted unsupported code")
	}
}
