package transcript

import (
	"strings"
	"testing"
)

func finalEvent(texts ...string) Event {
	ev := Event{}
	for _, t := range texts {
		ev.Results = append(ev.Results, Result{IsFinal: true, Text: t})
	}
	return ev
}

func interimEvent(texts ...string) Event {
	ev := Event{}
	for _, t := range texts {
		ev.Results = append(ev.Results, Result{IsFinal: false, Text: t})
	}
	return ev
}

func TestApply(t *testing.T) {
	tests := []struct {
		name          string
		committed     string
		event         Event
		wantCommitted string
		wantInterim   string
	}{
		{
			name:          "first final into empty transcript",
			committed:     "",
			event:         finalEvent("hello"),
			wantCommitted: "hello",
		},
		{
			name:          "final appended with single space",
			committed:     "hello",
			event:         finalEvent("there"),
			wantCommitted: "hello there",
		},
		{
			name:          "final results concatenate without separator",
			committed:     "",
			event:         finalEvent(" good ", "morning"),
			wantCommitted: "goodmorning",
		},
		{
			name:          "repeated final is discarded",
			committed:     "so it begins",
			event:         finalEvent("it begins"),
			wantCommitted: "so it begins",
		},
		{
			name:          "partial overlap that is not a suffix is appended",
			committed:     "so it begins",
			event:         finalEvent("it began"),
			wantCommitted: "so it begins it began",
		},
		{
			name:          "re-emitted transcript only appends new words",
			committed:     "hello",
			event:         finalEvent("hello world"),
			wantCommitted: "hello world",
		},
		{
			name:          "whitespace only final is ignored",
			committed:     "hello",
			event:         finalEvent("   "),
			wantCommitted: "hello",
		},
		{
			name:          "interim text is returned",
			committed:     "hello",
			event:         interimEvent("how", " are"),
			wantCommitted: "hello",
			wantInterim:   "howare",
		},
		{
			name:      "mixed final and interim",
			committed: "",
			event: Event{Results: []Result{
				{IsFinal: true, Text: "one"},
				{IsFinal: false, Text: "two"},
			}},
			wantCommitted: "one",
			wantInterim:   "two",
		},
		{
			name:      "results before the index are skipped",
			committed: "one",
			event: Event{ResultIndex: 1, Results: []Result{
				{IsFinal: true, Text: "one"},
				{IsFinal: true, Text: "two"},
			}},
			wantCommitted: "one two",
		},
		{
			name:          "empty event",
			committed:     "keep me",
			event:         Event{},
			wantCommitted: "keep me",
		},
		{
			name:          "index past the end",
			committed:     "keep me",
			event:         Event{ResultIndex: 5, Results: []Result{{IsFinal: true, Text: "x"}}},
			wantCommitted: "keep me",
		},
		{
			name:          "negative index treated as zero",
			committed:     "",
			event:         Event{ResultIndex: -3, Results: []Result{{IsFinal: true, Text: "x"}}},
			wantCommitted: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			committed, interim := Apply(tt.event, tt.committed)
			if committed != tt.wantCommitted {
				t.Errorf("Expected committed %q, got %q", tt.wantCommitted, committed)
			}
			if interim != tt.wantInterim {
				t.Errorf("Expected interim %q, got %q", tt.wantInterim, interim)
			}
		})
	}
}

func TestApply_IdempotentUnderRepeatedFinalization(t *testing.T) {
	committed := "the quick brown fox"
	for _, tail := range []string{"fox", "brown fox", "quick brown fox", "the quick brown fox"} {
		got, _ := Apply(finalEvent(tail), committed)
		if got != committed {
			t.Errorf("Expected %q to leave transcript unchanged, got %q", tail, got)
		}
	}
}

func TestApply_DisjointFinalsConcatenate(t *testing.T) {
	segments := []string{"alpha", "bravo charlie", "delta", "echo foxtrot golf"}

	committed := ""
	for _, seg := range segments {
		committed, _ = Apply(finalEvent(seg), committed)
	}

	want := strings.Join(segments, " ")
	if committed != want {
		t.Errorf("Expected %q, got %q", want, committed)
	}
}

func TestApply_InterimIsReplaced(t *testing.T) {
	var acc Accumulator

	acc.Apply(interimEvent("how"))
	acc.Apply(interimEvent("how are"))
	if acc.Interim != "how are" {
		t.Errorf("Expected interim 'how are', got %q", acc.Interim)
	}

	acc.Apply(finalEvent("how are you"))
	if acc.Interim != "" {
		t.Errorf("Expected interim to be cleared by an event without interim text, got %q", acc.Interim)
	}
	if acc.Committed != "how are you" {
		t.Errorf("Expected committed 'how are you', got %q", acc.Committed)
	}
}

func TestAccumulator_HelloWorldScenario(t *testing.T) {
	var acc Accumulator

	if !acc.Apply(finalEvent("hello")) {
		t.Error("Expected first final to be appended")
	}
	if !acc.Apply(finalEvent("hello world")) {
		t.Error("Expected extended final to be appended")
	}
	if acc.Committed != "hello world" {
		t.Errorf("Expected 'hello world', got %q", acc.Committed)
	}
	if acc.Apply(finalEvent("world")) {
		t.Error("Expected repeated final to be discarded")
	}
}

func TestAccumulator_Reset(t *testing.T) {
	acc := Accumulator{Committed: "something", Interim: "else"}
	acc.Reset()

	if acc.Committed != "" || acc.Interim != "" {
		t.Errorf("Expected empty accumulator after reset, got %+v", acc)
	}
}

func TestHasFinal(t *testing.T) {
	if HasFinal(interimEvent("x")) {
		t.Error("Expected interim-only event to have no final text")
	}
	if HasFinal(finalEvent(" ")) {
		t.Error("Expected whitespace final to count as empty")
	}
	if !HasFinal(finalEvent("x")) {
		t.Error("Expected final text to be detected")
	}
}
