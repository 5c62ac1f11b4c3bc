package convo_test

import (
	"fmt"
	"testing"

	"github.com/necklaceai/necklace/go/pkg/convo"
)

func TestBoundedEviction(t *testing.T) {
	h := convo.New(10)
	for i := 0; i < 17; i++ {
		h.Add(convo.RoleUser, fmt.Sprintf("u%d", i))
		h.Add(convo.RoleAssistant, fmt.Sprintf("a%d", i))
		if h.Len() > 10 {
			t.Fatalf("history grew to %d entries", h.Len())
		}
	}

	entries := h.Entries()
	if len(entries) != 10 {
		t.Fatalf("len = %d, want 10", len(entries))
	}
	// Most recent 10 entries, in order: u12 a12 ... u16 a16.
	if entries[0].Content != "u12" || entries[0].Role != convo.RoleUser {
		t.Fatalf("oldest kept entry = %+v, want u12", entries[0])
	}
	if entries[9].Content != "a16" || entries[9].Role != convo.RoleAssistant {
		t.Fatalf("newest entry = %+v, want a16", entries[9])
	}
}

func TestRetractLastUser(t *testing.T) {
	h := convo.New(10)
	h.Add(convo.RoleUser, "hello")
	h.Add(convo.RoleAssistant, "hi")

	before := h.Len()
	h.Add(convo.RoleUser, "check my mail")
	h.RetractLastUser()
	if h.Len() != before {
		t.Fatalf("len after retract = %d, want %d", h.Len(), before)
	}

	// Retract is a no-op when the last entry is not a user utterance.
	h.RetractLastUser()
	if h.Len() != before {
		t.Fatalf("retract removed an assistant entry")
	}
}

func TestReset(t *testing.T) {
	h := convo.New(10)
	h.Add(convo.RoleUser, "x")
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", h.Len())
	}
}
