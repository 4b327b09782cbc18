package delegation

import "testing"

func TestValid(t *testing.T) {
	for _, s := range All {
		if !Valid(string(s)) {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "started", "DONE", "blocked"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(StatusDone) {
		t.Error("done should be terminal")
	}
	for _, s := range []Status{StatusAssigned, StatusInProgress, StatusWaiting, StatusNeedsReview} {
		if Terminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
