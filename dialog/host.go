package dialog

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zenibako/fragsync/messages"
)

// HostConfig configures the sessions a Host opens
type HostConfig struct {
	Endpoints  *messages.EndpointBuilder
	HTTPClient *http.Client
	Username   string
	Password   string
	Prompter   Prompter
	Notifier   Notifier
	Metrics    *Metrics
	OnChange   func(Snapshot)

	// NewRemote replaces the HTTP remote built from Endpoints
	NewRemote func(FieldPaths) Remote
}

// Host tracks the dialog currently open in the authoring UI. A session is
// created when the dialog becomes ready and closed at teardown.
type Host struct {
	mu      sync.Mutex
	cfg     HostConfig
	session *Session
}

var _ EventHandler = (*Host)(nil)

func NewHost(cfg HostConfig) *Host {
	if cfg.Endpoints == nil {
		cfg.Endpoints = messages.NewEndpointBuilder("")
	}
	return &Host{cfg: cfg}
}

// Ready opens a session for the dialog described by markup, replacing any
// session still open.
func (h *Host) Ready(markup string) error {
	initial, err := ParseDialog(strings.NewReader(markup))
	if err != nil {
		return err
	}

	session, err := Open(initial, Config{
		Remote:   h.remoteFor(initial.Paths),
		Prompter: h.cfg.Prompter,
		Notifier: h.cfg.Notifier,
		Metrics:  h.cfg.Metrics,
		OnChange: h.cfg.OnChange,
	})
	if err != nil {
		return fmt.Errorf("failed to open dialog session: %w", err)
	}

	h.mu.Lock()
	previous := h.session
	h.session = session
	h.mu.Unlock()

	if previous != nil {
		log.Debug("Replacing open dialog session")
		previous.Close()
	}
	log.Info("Dialog ready", "component", initial.ComponentPath, "fragment", initial.FragmentPath)
	return nil
}

// Teardown closes the open session, if any
func (h *Host) Teardown() {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.mu.Unlock()

	if session != nil {
		session.Close()
		log.Info("Dialog closed")
	}
}

// Session returns the open session
func (h *Host) Session() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil, ErrNoSession
	}
	return h.session, nil
}

func (h *Host) SourceChanged(next string) error {
	s, err := h.Session()
	if err != nil {
		return err
	}
	return s.SourceChanged(next)
}

func (h *Host) ElementsChanged(entries []string) error {
	s, err := h.Session()
	if err != nil {
		return err
	}
	return s.ElementsChanged(entries)
}

func (h *Host) ScopeChanged(scope string) error {
	s, err := h.Session()
	if err != nil {
		return err
	}
	return s.ScopeChanged(scope)
}

func (h *Host) RangeChanged(value string) error {
	s, err := h.Session()
	if err != nil {
		return err
	}
	return s.RangeChanged(value)
}

func (h *Host) HeadingsChanged(checked bool) error {
	s, err := h.Session()
	if err != nil {
		return err
	}
	return s.HeadingsChanged(checked)
}

// SubmitChoice forwards a prompt answer to a prompter that accepts them
func (h *Host) SubmitChoice(response PromptResponse) error {
	resolver, ok := h.cfg.Prompter.(interface {
		SubmitChoice(PromptResponse) error
	})
	if !ok {
		return fmt.Errorf("prompter %T does not accept remote choices", h.cfg.Prompter)
	}
	return resolver.SubmitChoice(response)
}

func (h *Host) remoteFor(paths FieldPaths) Remote {
	if h.cfg.NewRemote != nil {
		return h.cfg.NewRemote(paths)
	}
	remote := NewHTTPRemote(h.cfg.Endpoints, paths)
	remote.SetHTTPClient(h.cfg.HTTPClient)
	if h.cfg.Username != "" {
		remote.SetBasicAuth(h.cfg.Username, h.cfg.Password)
	}
	return remote
}
