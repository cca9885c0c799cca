package dialog

import (
	"errors"
	"testing"
)

type gateRecorder struct {
	calls []string
}

func (r *gateRecorder) record(name string) func() {
	return func() { r.calls = append(r.calls, name) }
}

func TestGateRetainSkipsPrompt(t *testing.T) {
	prompter := &fakePrompter{}
	rec := &gateRecorder{}
	gate := NewGate(prompter, nil, rec.record("clear"))

	gate.Reconcile(true, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))

	if prompter.count() != 0 {
		t.Errorf("Expected no prompt, got %d", prompter.count())
	}
	if len(rec.calls) != 1 || rec.calls[0] != "unchanged" {
		t.Errorf("Calls = %v, want [unchanged]", rec.calls)
	}
}

func TestGateConfirmClearsThenDiscards(t *testing.T) {
	prompter := &fakePrompter{}
	rec := &gateRecorder{}
	gate := NewGate(prompter, nil, rec.record("clear"))

	gate.Reconcile(false, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))

	prompt := prompter.last(t)
	if prompt.title != ConfirmTitle || prompt.message != ConfirmMessage {
		t.Errorf("Unexpected prompt %q: %q", prompt.title, prompt.message)
	}
	if len(prompt.choices) != 2 {
		t.Fatalf("Expected 2 choices, got %d", len(prompt.choices))
	}
	if prompt.choices[0].Label != CancelLabel || prompt.choices[0].Primary {
		t.Errorf("First choice should be a non-primary cancel: %+v", prompt.choices[0])
	}
	if prompt.choices[1].Label != ConfirmLabel || !prompt.choices[1].Primary {
		t.Errorf("Second choice should be the primary confirm: %+v", prompt.choices[1])
	}

	prompter.choose(t, 0, ConfirmLabel)
	// later answers are ignored
	prompter.choose(t, 0, ConfirmLabel)
	prompter.choose(t, 0, CancelLabel)

	if len(rec.calls) != 2 || rec.calls[0] != "clear" || rec.calls[1] != "discard" {
		t.Errorf("Calls = %v, want [clear discard]", rec.calls)
	}
}

func TestGateCancel(t *testing.T) {
	prompter := &fakePrompter{}
	rec := &gateRecorder{}
	gate := NewGate(prompter, nil, rec.record("clear"))

	gate.Reconcile(false, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))
	prompter.choose(t, 0, CancelLabel)
	prompter.choose(t, 0, ConfirmLabel)

	if len(rec.calls) != 1 || rec.calls[0] != "cancel" {
		t.Errorf("Calls = %v, want [cancel]", rec.calls)
	}
}

func TestGateDispatchMayDrop(t *testing.T) {
	prompter := &fakePrompter{}
	rec := &gateRecorder{}
	dispatched := 0
	gate := NewGate(prompter, func(fn func()) { dispatched++ }, rec.record("clear"))

	gate.Reconcile(false, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))
	prompter.choose(t, 0, ConfirmLabel)
	prompter.choose(t, 0, CancelLabel)

	if dispatched != 1 {
		t.Errorf("Expected 1 dispatch, got %d", dispatched)
	}
	if len(rec.calls) != 0 {
		t.Errorf("Dropped continuation ran: %v", rec.calls)
	}
}

func TestRemotePrompterResolvesByRequestID(t *testing.T) {
	var sent []PromptRequest
	prompter := NewRemotePrompter(func(req PromptRequest) error {
		sent = append(sent, req)
		return nil
	})
	rec := &gateRecorder{}
	gate := NewGate(prompter, nil, rec.record("clear"))

	gate.Reconcile(false, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))

	if len(sent) != 1 {
		t.Fatalf("Expected 1 prompt request, got %d", len(sent))
	}
	req := sent[0]
	if req.RequestID == "" || req.Severity != SeverityWarning || len(req.Choices) != 2 {
		t.Errorf("Unexpected request: %+v", req)
	}
	if prompter.Pending() != 1 {
		t.Errorf("Expected 1 pending prompt, got %d", prompter.Pending())
	}

	err := prompter.SubmitChoice(PromptResponse{RequestID: "unknown", Choice: 1})
	if !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("Expected ErrUnknownRequest, got %v", err)
	}

	if err := prompter.SubmitChoice(PromptResponse{RequestID: req.RequestID, Choice: 1}); err != nil {
		t.Fatalf("SubmitChoice failed: %v", err)
	}
	if len(rec.calls) != 2 || rec.calls[1] != "discard" {
		t.Errorf("Calls = %v, want [clear discard]", rec.calls)
	}
	if prompter.Pending() != 0 {
		t.Errorf("Expected no pending prompts, got %d", prompter.Pending())
	}

	// a second answer for the same request is unknown
	if err := prompter.SubmitChoice(PromptResponse{RequestID: req.RequestID, Choice: 0}); !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("Expected ErrUnknownRequest, got %v", err)
	}
}

func TestRemotePrompterFallsBackToCancel(t *testing.T) {
	t.Run("send failure", func(t *testing.T) {
		prompter := NewRemotePrompter(func(PromptRequest) error {
			return errors.New("host unreachable")
		})
		rec := &gateRecorder{}
		NewGate(prompter, nil, rec.record("clear")).
			Reconcile(false, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))

		if len(rec.calls) != 1 || rec.calls[0] != "cancel" {
			t.Errorf("Calls = %v, want [cancel]", rec.calls)
		}
		if prompter.Pending() != 0 {
			t.Errorf("Expected no pending prompts, got %d", prompter.Pending())
		}
	})

	t.Run("choice out of range", func(t *testing.T) {
		var requestID string
		prompter := NewRemotePrompter(func(req PromptRequest) error {
			requestID = req.RequestID
			return nil
		})
		rec := &gateRecorder{}
		NewGate(prompter, nil, rec.record("clear")).
			Reconcile(false, rec.record("unchanged"), rec.record("discard"), rec.record("cancel"))

		if err := prompter.SubmitChoice(PromptResponse{RequestID: requestID, Choice: 7}); err != nil {
			t.Fatalf("SubmitChoice failed: %v", err)
		}
		if len(rec.calls) != 1 || rec.calls[0] != "cancel" {
			t.Errorf("Calls = %v, want [cancel]", rec.calls)
		}
	})
}

func TestFallbackIndex(t *testing.T) {
	choices := []Choice{{Label: "Confirm", Primary: true}, {Label: "Cancel"}}
	if got := fallbackIndex(choices); got != 1 {
		t.Errorf("fallbackIndex() = %d, want 1", got)
	}
	if got := primaryIndex(choices); got != 0 {
		t.Errorf("primaryIndex() = %d, want 0", got)
	}
}
