package messages

import (
	"fmt"
	"strings"
)

// OSC message types and addresses exchanged between the authoring host and fragsync

// Message types
type MessageType string

const (
	// Dialog lifecycle
	MsgReady    MessageType = "ready"
	MsgTeardown MessageType = "teardown"

	// Field edits reported by the host
	MsgSource   MessageType = "source"
	MsgElements MessageType = "elements"
	MsgScope    MessageType = "scope"
	MsgRange    MessageType = "range"
	MsgHeadings MessageType = "headings"

	// Prompt round-trip
	MsgPrompt MessageType = "prompt"
	MsgChoice MessageType = "choice"

	// Published to the host
	MsgState  MessageType = "state"
	MsgNotify MessageType = "notify"
)

// OSC address patterns
const (
	AddrReady    = "/{ns}/ready"
	AddrTeardown = "/{ns}/teardown"

	AddrSource   = "/{ns}/source"
	AddrElements = "/{ns}/elements"
	AddrScope    = "/{ns}/scope"
	AddrRange    = "/{ns}/range"
	AddrHeadings = "/{ns}/headings"

	AddrPrompt = "/{ns}/prompt"
	AddrChoice = "/{ns}/choice"

	AddrState  = "/{ns}/state"
	AddrNotify = "/{ns}/notify"
)

// DefaultNamespace is the first address segment when none is configured.
const DefaultNamespace = "fragsync"

var addresses = map[MessageType]string{
	MsgReady:    AddrReady,
	MsgTeardown: AddrTeardown,
	MsgSource:   AddrSource,
	MsgElements: AddrElements,
	MsgScope:    AddrScope,
	MsgRange:    AddrRange,
	MsgHeadings: AddrHeadings,
	MsgPrompt:   AddrPrompt,
	MsgChoice:   AddrChoice,
	MsgState:    AddrState,
	MsgNotify:   AddrNotify,
}

// InboundTypes lists the message types the host sends to fragsync.
var InboundTypes = []MessageType{
	MsgReady, MsgTeardown, MsgSource, MsgElements, MsgScope, MsgRange, MsgHeadings, MsgChoice,
}

// AddressBuilder builds OSC addresses under a namespace
type AddressBuilder struct {
	namespace string
}

// NewAddressBuilder creates a new address builder. An empty namespace falls
// back to DefaultNamespace.
func NewAddressBuilder(namespace string) *AddressBuilder {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &AddressBuilder{
		namespace: namespace,
	}
}

// BuildAddress builds an OSC address from a message type
func (b *AddressBuilder) BuildAddress(msgType MessageType) string {
	address, ok := addresses[msgType]
	if !ok {
		return ""
	}
	return strings.ReplaceAll(address, "{ns}", b.namespace)
}

// Parse maps an incoming address back to its message type.
func (b *AddressBuilder) Parse(address string) (MessageType, error) {
	prefix := "/" + b.namespace + "/"
	if !strings.HasPrefix(address, prefix) {
		return "", fmt.Errorf("address %q is outside namespace %q", address, b.namespace)
	}
	msgType := MessageType(strings.TrimPrefix(address, prefix))
	if _, ok := addresses[msgType]; !ok {
		return "", fmt.Errorf("unknown message type %q", msgType)
	}
	return msgType, nil
}

// Namespace returns the namespace segment used by this builder
func (b *AddressBuilder) Namespace() string {
	return b.namespace
}
