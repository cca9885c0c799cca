package dialog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// State is the reconciliation state of a session
type State int

const (
	StateIdle State = iota
	StateAwaitingFetch
	StateAwaitingConfirmation
	StateApplying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFetch:
		return "awaiting_fetch"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateApplying:
		return "applying"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config wires a session to its collaborators
type Config struct {
	Remote   Remote
	Prompter Prompter
	Notifier Notifier       // defaults to LogNotifier
	Metrics  *Metrics       // optional
	OnChange func(Snapshot) // called on the session loop after every event
}

// Snapshot is a copy of the dialog state held by a session
type Snapshot struct {
	State             State             `json:"state"`
	FragmentPath      string            `json:"fragment_path"`
	CurrentReference  string            `json:"current_reference"`
	Elements          []string          `json:"elements"`
	ElementOptions    OptionSet         `json:"element_options"`
	Variation         string            `json:"variation"`
	VariationOptions  OptionSet         `json:"variation_options"`
	AddElementEnabled bool              `json:"add_element_enabled"`
	VariationEnabled  bool              `json:"variation_enabled"`
	Controls          ParagraphControls `json:"controls"`
	Persisted         *ParagraphState   `json:"persisted,omitempty"`
}

// eventBuffer bounds the number of queued events
const eventBuffer = 64

// Session reconciles the dependent fields of one open edit dialog. All state
// is owned by a single loop goroutine; events and request results are queued
// onto it as closures.
type Session struct {
	remote   Remote
	prompter Prompter
	notifier Notifier
	metrics  *Metrics
	onChange func(Snapshot)

	events    chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// loop-owned state
	state            State
	source           string // value displayed by the fragment path field
	current          string // last confirmed fragment path
	latest           string // token of the pending change, "" when none
	elements         []string
	elementOptions   OptionSet
	variation        string
	variationOptions OptionSet
	addEnabled       bool
	variationEnabled bool
	controls         *controlsDeriver
}

// Open starts a session for a dialog that became ready with the given state.
func Open(initial Init, cfg Config) (*Session, error) {
	if cfg.Remote == nil {
		return nil, errors.New("dialog: remote is required")
	}
	if cfg.Prompter == nil {
		return nil, errors.New("dialog: prompter is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		remote:           cfg.Remote,
		prompter:         cfg.Prompter,
		notifier:         cfg.Notifier,
		metrics:          cfg.Metrics,
		onChange:         cfg.OnChange,
		events:           make(chan func(), eventBuffer),
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
		stopped:          make(chan struct{}),
		state:            StateIdle,
		source:           initial.FragmentPath,
		current:          initial.FragmentPath,
		elements:         cloneStrings(initial.Elements),
		elementOptions:   initial.ElementOptions.clone(),
		variation:        initial.Variation,
		variationOptions: initial.VariationOptions.clone(),
	}

	// without a fragment there is nothing to choose elements or variations from
	s.addEnabled = s.current != ""
	s.variationEnabled = s.current != ""
	s.controls = newControlsDeriver(cfg.Remote, initial.ComponentPath, initial.Controls, s.spawn, cfg.Metrics)

	log.Debug("Dialog session opened", "component", initial.ComponentPath, "fragment", initial.FragmentPath, "elements", len(initial.Elements))

	go s.run()
	return s, nil
}

// Close stops the session. Pending requests are cancelled and their results
// dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
	<-s.stopped
}

// SourceChanged reports a user edit of the fragment path field.
func (s *Session) SourceChanged(next string) error {
	return s.post(func() { s.onSourceChanged(next) })
}

// ElementsChanged reports the element names entries after the user added,
// removed or edited one.
func (s *Session) ElementsChanged(entries []string) error {
	entries = cloneStrings(entries)
	return s.post(func() {
		s.elements = entries
		s.controls.update(s.current, s.elements)
	})
}

// ScopeChanged reports a user selection of the paragraph scope.
func (s *Session) ScopeChanged(scope string) error {
	return s.post(func() { s.controls.scopeChanged(scope) })
}

// RangeChanged reports a user edit of the paragraph range.
func (s *Session) RangeChanged(value string) error {
	return s.post(func() { s.controls.rangeChanged(value) })
}

// HeadingsChanged reports a user toggle of the headings checkbox.
func (s *Session) HeadingsChanged(checked bool) error {
	return s.post(func() { s.controls.headingsChanged(checked) })
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	if err := s.post(func() { result <- s.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-result:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrSessionClosed
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
	for {
		select {
		case fn := <-s.events:
			fn()
			if s.onChange != nil {
				s.onChange(s.snapshot())
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) post(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.events <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// spawn runs work off the loop and queues the continuation it returns.
func (s *Session) spawn(work func(ctx context.Context) func()) {
	go func() {
		next := work(s.ctx)
		if next != nil {
			_ = s.post(next)
		}
	}()
}

// dispatchFor queues a prompt continuation that only runs while token still
// identifies the pending change.
func (s *Session) dispatchFor(token string) func(func()) {
	return func(fn func()) {
		go func() {
			_ = s.post(func() {
				if token != s.latest {
					s.metrics.staleResponse(kindPrompt)
					log.Debug("Dropping answer to a superseded prompt")
					return
				}
				fn()
			})
		}()
	}
}

func (s *Session) onSourceChanged(next string) {
	s.source = next
	token := uuid.NewString()
	s.latest = token

	if next == "" {
		s.setState(StateApplying)
		s.reconcile(token, next, nil)
		return
	}

	s.setState(StateAwaitingFetch)
	remote := s.remote
	metrics := s.metrics
	s.spawn(func(ctx context.Context) func() {
		start := time.Now()
		options, err := remote.FetchOptions(ctx, next)
		metrics.observeFetch(kindOptions, time.Since(start))
		return func() { s.onOptions(token, next, options, err) }
	})
}

func (s *Session) onOptions(token, next string, options FieldOptions, err error) {
	if token != s.latest {
		s.metrics.staleResponse(kindOptions)
		log.Debug("Dropping stale field options", "fragment", next)
		return
	}

	if err != nil {
		log.Error("Failed to load the elements of the selected fragment", "fragment", next, "error", err)
		s.latest = ""
		s.metrics.reconciled(OutcomeFailed)
		s.notifier.Notify(ErrorTitle, ErrorMessage, SeverityError)
		s.setState(StateIdle)
		return
	}

	s.setState(StateAwaitingConfirmation)
	s.reconcile(token, next, &options)
}

// reconcile decides whether the current configuration survives the change to
// next and runs the confirmation gate. incoming is nil when the fragment was
// cleared.
func (s *Session) reconcile(token, next string, incoming *FieldOptions) {
	retain := CanKeep(s.fieldState(), incoming)
	if !retain {
		s.setState(StateAwaitingConfirmation)
	}

	gate := NewGate(s.prompter, s.dispatchFor(token), s.clearSelection)
	gate.Reconcile(retain,
		func() { s.proceed(next, incoming, OutcomeKept) },
		func() { s.proceed(next, incoming, OutcomeDiscarded) },
		func() { s.rollback() },
	)
}

func (s *Session) proceed(next string, incoming *FieldOptions, outcome string) {
	s.setState(StateApplying)

	if incoming == nil {
		s.addEnabled = false
		s.variationEnabled = false
	} else {
		variation := s.variation
		s.elementOptions = incoming.Elements.clone()
		s.variationOptions = incoming.Variations.clone()
		s.variation = variation
		s.addEnabled = true
		s.variationEnabled = true
	}

	s.current = next
	s.latest = ""
	s.metrics.reconciled(outcome)
	log.Info("Fragment change applied", "fragment", next, "outcome", outcome)

	s.controls.update(s.current, s.elements)
	s.setState(StateIdle)
}

// rollback restores the fragment path field after the user cancelled. The
// dependent fields and the paragraph controls are left untouched.
func (s *Session) rollback() {
	log.Info("Fragment change cancelled", "requested", s.source, "restored", s.current)
	s.source = s.current
	s.latest = ""
	s.metrics.reconciled(OutcomeCancelled)
	s.setState(StateIdle)
}

func (s *Session) clearSelection() {
	s.elements = []string{}
	s.variation = ""
}

func (s *Session) fieldState() FieldState {
	return FieldState{
		Elements:         s.elements,
		ElementOptions:   s.elementOptions,
		Variation:        s.variation,
		VariationOptions: s.variationOptions,
	}
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	log.Debugf("Session state %s -> %s", s.state, state)
	s.state = state
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		State:             s.state,
		FragmentPath:      s.source,
		CurrentReference:  s.current,
		Elements:          cloneStrings(s.elements),
		ElementOptions:    s.elementOptions.clone(),
		Variation:         s.variation,
		VariationOptions:  s.variationOptions.clone(),
		AddElementEnabled: s.addEnabled,
		VariationEnabled:  s.variationEnabled,
		Controls:          s.controls.controls.clone(),
	}
	if s.controls.persisted != nil {
		persisted := *s.controls.persisted
		snap.Persisted = &persisted
	}
	return snap
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
