package state

import (
	"testing"
)

func TestStatus_String(t *testing.T) {
	cases := map[Status]string{
		Waiting:       "waiting",
		InProgress:    "in_progress",
		QuestionEnded: "question_ended",
		Finished:      "finished",
		Status(99):    "unknown",
	}

	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestCanTransition_ForwardOnly(t *testing.T) {
	allowed := [][2]Status{
		{Waiting, InProgress},
		{InProgress, QuestionEnded},
		{QuestionEnded, InProgress},
		{QuestionEnded, Finished},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("expected transition %v -> %v to be allowed", pair[0], pair[1])
		}
	}

	blocked := [][2]Status{
		{Waiting, QuestionEnded},
		{InProgress, Waiting},
		{InProgress, InProgress},
		{QuestionEnded, Waiting},
		{Finished, Waiting},
		{Finished, InProgress},
	}
	for _, pair := range blocked {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("expected transition %v -> %v to be blocked", pair[0], pair[1])
		}
	}
}

func TestCanTransition_ForcedFinish(t *testing.T) {
	// Host loss forces Finished from any non-terminal state.
	for _, from := range []Status{Waiting, InProgress, QuestionEnded} {
		if !CanTransition(from, Finished) {
			t.Errorf("expected forced finish from %v to be allowed", from)
		}
	}

	if CanTransition(Finished, Finished) {
		t.Error("Finished should not transition to itself")
	}
}

func TestTransition(t *testing.T) {
	got, err := Transition(Waiting, InProgress)
	if err != nil {
		t.Fatalf("Transition returned unexpected error: %v", err)
	}
	if got != InProgress {
		t.Errorf("expected InProgress, got %v", got)
	}

	got, err = Transition(Waiting, QuestionEnded)
	if err != ErrTransitionNotAllowed {
		t.Errorf("expected ErrTransitionNotAllowed, got %v", err)
	}
	if got != Waiting {
		t.Errorf("blocked transition should keep the old status, got %v", got)
	}
}

func TestTerminal(t *testing.T) {
	if Terminal(Waiting) || Terminal(InProgress) || Terminal(QuestionEnded) {
		t.Error("only Finished should be terminal")
	}
	if !Terminal(Finished) {
		t.Error("Finished should be terminal")
	}
}
