package store

import "testing"

func TestIsTerminal(t *testing.T) {
	terminal := []State{StateReplied, StateClosed, StateNeedsReview}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}

	active := []State{
		StateDiscovered, StateEnriched, StateDrafted, StateQueued,
		StateSent, StateWaiting, StateNoReply, StateFollowUpEligible,
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
