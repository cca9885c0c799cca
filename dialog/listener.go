package dialog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/zenibako/fragsync/messages"
)

// EventHandler receives the dialog events sent by the authoring host
type EventHandler interface {
	Ready(markup string) error
	Teardown()
	SourceChanged(next string) error
	ElementsChanged(entries []string) error
	ScopeChanged(scope string) error
	RangeChanged(value string) error
	HeadingsChanged(checked bool) error
	SubmitChoice(response PromptResponse) error
}

// Listener receives dialog events over OSC and routes them to a handler.
type Listener struct {
	addr      string
	addresses *messages.AddressBuilder
	handler   EventHandler
	server    *osc.Server
	serverMux sync.Mutex
}

// NewListener creates a listener bound to addr ("host:port") once started
func NewListener(addr, namespace string, handler EventHandler) *Listener {
	return &Listener{
		addr:      addr,
		addresses: messages.NewAddressBuilder(namespace),
		handler:   handler,
	}
}

// Start begins serving in the background. It fails if the address cannot be
// bound.
func (l *Listener) Start() error {
	l.serverMux.Lock()
	if l.server != nil {
		l.serverMux.Unlock()
		log.Debugf("OSC listener already running on %s", l.addr)
		return nil
	}

	d := osc.NewStandardDispatcher()
	_ = d.AddMsgHandler("*", func(msg *osc.Message) {
		if err := l.handleMessage(msg); err != nil {
			log.Warn("Failed to handle dialog event", "address", msg.Address, "error", err)
		}
	})

	server := &osc.Server{
		Addr:       l.addr,
		Dispatcher: d,
	}
	l.server = server
	l.serverMux.Unlock()

	started := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
			log.Errorf("OSC listener exited with error: %v", err)
		}
		started <- err
	}()

	select {
	case err := <-started:
		l.serverMux.Lock()
		l.server = nil
		l.serverMux.Unlock()
		if err != nil {
			return fmt.Errorf("failed to start OSC listener on %s: %w", l.addr, err)
		}
		return fmt.Errorf("OSC listener on %s stopped unexpectedly", l.addr)
	case <-time.After(100 * time.Millisecond):
		log.Infof("OSC listener started on %s", l.addr)
		return nil
	}
}

// Close stops the listener
func (l *Listener) Close() {
	l.serverMux.Lock()
	defer l.serverMux.Unlock()
	if l.server != nil {
		if err := l.server.CloseConnection(); err != nil {
			log.Warnf("Failed to close OSC listener: %v", err)
		}
		l.server = nil
	}
}

func (l *Listener) handleMessage(msg *osc.Message) error {
	msgType, err := l.addresses.Parse(msg.Address)
	if err != nil {
		return err
	}
	log.Debug("Dialog event received", "type", msgType, "args", len(msg.Arguments))

	args := msg.Arguments
	switch msgType {
	case messages.MsgReady:
		markup, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		return l.handler.Ready(markup)
	case messages.MsgTeardown:
		l.handler.Teardown()
		return nil
	case messages.MsgSource:
		// an unset fragment may be sent without arguments
		next, err := optionalStringArg(args, 0)
		if err != nil {
			return err
		}
		return l.handler.SourceChanged(next)
	case messages.MsgElements:
		entries := make([]string, 0, len(args))
		for i := range args {
			entry, err := stringArg(args, i)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return l.handler.ElementsChanged(entries)
	case messages.MsgScope:
		scope, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		return l.handler.ScopeChanged(scope)
	case messages.MsgRange:
		value, err := optionalStringArg(args, 0)
		if err != nil {
			return err
		}
		return l.handler.RangeChanged(value)
	case messages.MsgHeadings:
		checked, err := boolArg(args, 0)
		if err != nil {
			return err
		}
		return l.handler.HeadingsChanged(checked)
	case messages.MsgChoice:
		requestID, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		choice, err := intArg(args, 1)
		if err != nil {
			return err
		}
		return l.handler.SubmitChoice(PromptResponse{RequestID: requestID, Choice: choice})
	default:
		return fmt.Errorf("message type %s is not accepted from the host", msgType)
	}
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("argument %d: expected string, got %T", i, args[i])
	}
}

// optionalStringArg treats a missing argument as empty
func optionalStringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", nil
	}
	return stringArg(args, i)
}

func boolArg(args []any, i int) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("missing argument %d", i)
	}
	switch v := args[i].(type) {
	case bool:
		return v, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("argument %d: expected bool, got %T", i, args[i])
	}
}

func intArg(args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch v := args[i].(type) {
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("argument %d: expected int, got %T", i, args[i])
	}
}

// Publisher sends session state, prompts and notifications to the host
type Publisher struct {
	client    *osc.Client
	addresses *messages.AddressBuilder
}

var _ Notifier = (*Publisher)(nil)

// NewPublisher creates a publisher sending to the host at host:port
func NewPublisher(host string, port int, namespace string) *Publisher {
	return &Publisher{
		client:    osc.NewClient(host, port),
		addresses: messages.NewAddressBuilder(namespace),
	}
}

// PublishState sends a snapshot as JSON. Errors are logged; state is
// republished on the next change.
func (p *Publisher) PublishState(snap Snapshot) {
	if err := p.sendJSON(messages.MsgState, snap); err != nil {
		log.Warnf("Failed to publish dialog state: %v", err)
	}
}

// SendPrompt sends a prompt request; it is the request sender of a
// RemotePrompter.
func (p *Publisher) SendPrompt(request PromptRequest) error {
	return p.sendJSON(messages.MsgPrompt, request)
}

func (p *Publisher) Notify(title, message string, severity Severity) {
	msg := osc.NewMessage(p.addresses.BuildAddress(messages.MsgNotify))
	msg.Append(title)
	msg.Append(message)
	msg.Append(string(severity))
	if err := p.client.Send(msg); err != nil {
		log.Errorf("Failed to send notification %q: %v", title, err)
	}
}

func (p *Publisher) sendJSON(msgType messages.MessageType, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msgType, err)
	}
	msg := osc.NewMessage(p.addresses.BuildAddress(msgType))
	msg.Append(string(data))
	log.Debugf("Sending %s message (%d bytes)", msgType, len(data))
	return p.client.Send(msg)
}
