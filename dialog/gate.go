package dialog

import "sync"

// Dialog texts. Localization is left to the host.
const (
	ConfirmTitle   = "Warning"
	ConfirmMessage = "Please confirm replacing the current content fragment and its configuration"
	CancelLabel    = "Cancel"
	ConfirmLabel   = "Confirm"

	ErrorTitle   = "Error"
	ErrorMessage = "Failed to load the elements of the selected content fragment"
)

// Gate guards a destructive fragment change behind a confirm/cancel prompt.
type Gate struct {
	prompter Prompter
	dispatch func(func())
	clear    func()
}

// NewGate creates a gate. dispatch runs the chosen continuation on the
// caller's loop and may drop it; clear resets the element and variation
// selection before a confirmed discard. A nil dispatch calls continuations
// directly.
func NewGate(prompter Prompter, dispatch func(func()), clear func()) *Gate {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	if clear == nil {
		clear = func() {}
	}
	return &Gate{
		prompter: prompter,
		dispatch: dispatch,
		clear:    clear,
	}
}

// Reconcile runs onUnchanged right away when retain is true. Otherwise it
// prompts the user: cancel runs onCancel, confirm clears the selection and
// runs onDiscard. Exactly one of the three runs per call.
func (g *Gate) Reconcile(retain bool, onUnchanged, onDiscard, onCancel func()) {
	if retain {
		onUnchanged()
		return
	}

	var once sync.Once
	resolve := func(fn func()) func() {
		return func() {
			once.Do(func() { g.dispatch(fn) })
		}
	}

	g.prompter.Prompt(ConfirmTitle, ConfirmMessage, SeverityWarning, []Choice{
		{
			Label:    CancelLabel,
			OnSelect: resolve(onCancel),
		},
		{
			Label:   ConfirmLabel,
			Primary: true,
			OnSelect: resolve(func() {
				g.clear()
				onDiscard()
			}),
		},
	})
}
