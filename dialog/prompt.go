package dialog

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Severity classifies prompts and notifications
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Choice is one button of a modal prompt
type Choice struct {
	Label    string
	Primary  bool
	OnSelect func()
}

// Prompter presents a modal with a fixed set of choices. Prompt must not
// block; the implementation invokes the OnSelect of exactly one choice once
// the user answers.
type Prompter interface {
	Prompt(title, message string, severity Severity, choices []Choice)
}

// Notifier presents a non-interactive message to the user
type Notifier interface {
	Notify(title, message string, severity Severity)
}

func primaryIndex(choices []Choice) int {
	for i, c := range choices {
		if c.Primary {
			return i
		}
	}
	return 0
}

// fallbackIndex picks the choice used when the user could not answer: the
// first non-primary one.
func fallbackIndex(choices []Choice) int {
	for i, c := range choices {
		if !c.Primary {
			return i
		}
	}
	return 0
}

func selectChoice(choices []Choice, index int) {
	if index < 0 || index >= len(choices) {
		return
	}
	if choices[index].OnSelect != nil {
		choices[index].OnSelect()
	}
}

// TerminalPrompter renders prompts and notifications in the terminal using huh.
// Forms are shown one at a time.
type TerminalPrompter struct {
	mu sync.Mutex
}

// NewTerminalPrompter creates a prompter bound to the controlling terminal
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

func (p *TerminalPrompter) Prompt(title, message string, severity Severity, choices []Choice) {
	if len(choices) == 0 {
		return
	}
	go p.runPrompt(title, message, severity, choices)
}

func (p *TerminalPrompter) runPrompt(title, message string, severity Severity, choices []Choice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	options := make([]huh.Option[int], 0, len(choices))
	for i, c := range choices {
		options = append(options, huh.NewOption(c.Label, i))
	}

	choice := primaryIndex(choices)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(fmt.Sprintf("[%s] %s", severity, title)).
				Description(message).
				Options(options...).
				Value(&choice),
		),
	)

	if err := form.Run(); err != nil {
		log.Warnf("Prompt %q was not answered, falling back to %q: %v", title, choices[fallbackIndex(choices)].Label, err)
		choice = fallbackIndex(choices)
	}

	log.Debug("Prompt answered", "title", title, "choice", choices[choice].Label)
	selectChoice(choices, choice)
}

func (p *TerminalPrompter) Notify(title, message string, severity Severity) {
	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewNote().
					Title(fmt.Sprintf("[%s] %s", severity, title)).
					Description(message).
					Next(true).
					NextLabel("OK"),
			),
		)
		if err := form.Run(); err != nil {
			log.Debugf("Notification %q dismissed: %v", title, err)
		}
	}()
}

// LogNotifier writes notifications to the log only
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string, severity Severity) {
	switch severity {
	case SeverityError:
		log.Error(message, "title", title)
	case SeverityWarning:
		log.Warn(message, "title", title)
	default:
		log.Info(message, "title", title)
	}
}

// PromptChoice is the wire form of a Choice
type PromptChoice struct {
	Label   string `json:"label"`
	Primary bool   `json:"primary,omitempty"`
}

// PromptRequest asks the host to display a modal
type PromptRequest struct {
	RequestID string         `json:"request_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Choices   []PromptChoice `json:"choices"`
}

// PromptResponse carries the index of the choice the user picked
type PromptResponse struct {
	RequestID string `json:"request_id"`
	Choice    int    `json:"choice"`
}

// RemotePrompter delegates prompts to the authoring host. Each prompt is sent
// with a request id; the matching response selects the choice.
type RemotePrompter struct {
	mu            sync.Mutex
	pending       map[string][]Choice
	requestSender func(PromptRequest) error
}

func NewRemotePrompter(requestSender func(PromptRequest) error) *RemotePrompter {
	return &RemotePrompter{
		pending:       make(map[string][]Choice),
		requestSender: requestSender,
	}
}

func (r *RemotePrompter) Prompt(title, message string, severity Severity, choices []Choice) {
	if len(choices) == 0 {
		return
	}

	request := PromptRequest{
		RequestID: uuid.NewString(),
		Title:     title,
		Message:   message,
		Severity:  severity,
		Choices:   make([]PromptChoice, 0, len(choices)),
	}
	for _, c := range choices {
		request.Choices = append(request.Choices, PromptChoice{Label: c.Label, Primary: c.Primary})
	}

	r.mu.Lock()
	r.pending[request.RequestID] = choices
	r.mu.Unlock()

	if err := r.requestSender(request); err != nil {
		log.Errorf("Failed to send prompt request %s: %v", request.RequestID, err)
		r.mu.Lock()
		delete(r.pending, request.RequestID)
		r.mu.Unlock()
		selectChoice(choices, fallbackIndex(choices))
		return
	}
	log.Debug("Prompt request sent", "request_id", request.RequestID, "title", title)
}

// SubmitChoice resolves a pending prompt
func (r *RemotePrompter) SubmitChoice(response PromptResponse) error {
	r.mu.Lock()
	choices, exists := r.pending[response.RequestID]
	if exists {
		delete(r.pending, response.RequestID)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, response.RequestID)
	}

	index := response.Choice
	if index < 0 || index >= len(choices) {
		log.Warnf("Choice %d out of range for request %s, falling back", index, response.RequestID)
		index = fallbackIndex(choices)
	}
	selectChoice(choices, index)
	return nil
}

// Pending returns the number of prompts awaiting a response
func (r *RemotePrompter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
