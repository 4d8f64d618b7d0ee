package trace_test

import (
	"testing"

	"github.com/bolt-foundry/gambit/pkg/trace"
)

func TestMultiSink_FansOutToAllDelegates(t *testing.T) {
	var a, b []trace.Event
	sink := trace.NewMultiSink(
		trace.SinkFunc(func(e trace.Event) { a = append(a, e) }),
		trace.SinkFunc(func(e trace.Event) { b = append(b, e) }),
	)

	sink.Emit(trace.RunStart("run-1", "decks/root.md"))

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected both delegates to receive the event, got %d and %d", len(a), len(b))
	}
	if a[0].Type != trace.TypeRunStart {
		t.Fatalf("expected run.start, got %s", a[0].Type)
	}
}

func TestMultiSink_RecoversFromPanickingDelegate(t *testing.T) {
	var got []trace.Event
	sink := trace.NewMultiSink(
		trace.SinkFunc(func(trace.Event) { panic("boom") }),
		trace.SinkFunc(func(e trace.Event) { got = append(got, e) }),
	)

	sink.Emit(trace.DeckStart("run-1", "call-1", "", "decks/root.md", 0))

	if len(got) != 1 {
		t.Fatalf("expected the well-behaved delegate to still receive the event, got %d", len(got))
	}
}

func TestActionHierarchy_ParentLinksPropagate(t *testing.T) {
	deckStart := trace.DeckStart("run-1", "call-2", "call-1", "decks/child.md", 1)
	actionStart := trace.ActionStart("run-1", "call-1", "", "ask_child", "decks/root.md")

	if deckStart.ParentActionCallID != actionStart.ActionCallID {
		t.Fatalf("expected child deck.start.parentActionCallId (%s) to equal the triggering action.start.actionCallId (%s)",
			deckStart.ParentActionCallID, actionStart.ActionCallID)
	}
}
