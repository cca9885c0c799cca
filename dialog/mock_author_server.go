package dialog

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/fragsync/messages"
	"github.com/zenibako/fragsync/templates"
)

// DefaultMockPaths are the field resource paths served by a MockAuthorServer
var DefaultMockPaths = FieldPaths{
	ElementNames:      "/mnt/override/apps/site/components/contentfragment/_cq_dialog/content/items/elementNames",
	VariationName:     "/mnt/override/apps/site/components/contentfragment/_cq_dialog/content/items/variationName",
	ParagraphControls: "/mnt/override/apps/site/components/contentfragment/_cq_dialog/content/items/paragraphControls",
}

// ReceivedRequest captures a field markup request for testing
type ReceivedRequest struct {
	FieldPath string
	Query     url.Values
	Timestamp time.Time
}

// MockFragment is a content fragment known to the mock author instance
type MockFragment struct {
	Path       string
	Elements   OptionSet
	Variations OptionSet
	Paragraphs bool // whether its elements offer paragraph controls
}

// MockAuthorServer simulates the field markup endpoints of an author instance
type MockAuthorServer struct {
	server    *httptest.Server
	paths     FieldPaths
	fragments map[string]MockFragment
	failures  map[string]int           // fragment path -> status code
	holds     map[string]chan struct{} // fragment path -> release
	requests  []ReceivedRequest
	mu        sync.Mutex
}

// NewMockAuthorServer starts a mock author instance serving the fields at paths
func NewMockAuthorServer(paths FieldPaths) *MockAuthorServer {
	m := &MockAuthorServer{
		paths:     paths,
		fragments: make(map[string]MockFragment),
		failures:  make(map[string]int),
		holds:     make(map[string]chan struct{}),
		requests:  make([]ReceivedRequest, 0),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	log.Debugf("Mock author server started on %s", m.server.URL)
	return m
}

// URL returns the base URL of the server
func (m *MockAuthorServer) URL() string {
	return m.server.URL
}

// Endpoints returns an endpoint builder for the server
func (m *MockAuthorServer) Endpoints() *messages.EndpointBuilder {
	return messages.NewEndpointBuilder(m.server.URL)
}

// Remote returns an HTTP remote talking to the server
func (m *MockAuthorServer) Remote() *HTTPRemote {
	remote := NewHTTPRemote(m.Endpoints(), m.paths)
	remote.SetHTTPClient(m.server.Client())
	return remote
}

// Close releases all held requests and stops the server
func (m *MockAuthorServer) Close() {
	m.mu.Lock()
	for path, release := range m.holds {
		close(release)
		delete(m.holds, path)
	}
	m.mu.Unlock()
	m.server.Close()
}

// AddFragment registers or replaces a fragment
func (m *MockAuthorServer) AddFragment(fragment MockFragment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments[fragment.Path] = fragment
}

// FailFragment makes every request for fragmentPath answer with status
func (m *MockAuthorServer) FailFragment(fragmentPath string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[fragmentPath] = status
}

// Hold delays every response for fragmentPath until the returned function is
// called.
func (m *MockAuthorServer) Hold(fragmentPath string) func() {
	release := make(chan struct{})
	m.mu.Lock()
	m.holds[fragmentPath] = release
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.holds[fragmentPath] == release {
				delete(m.holds, fragmentPath)
				close(release)
			}
			m.mu.Unlock()
		})
	}
}

// Requests returns a copy of all received requests
func (m *MockAuthorServer) Requests() []ReceivedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReceivedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsFor returns the received requests for one field
func (m *MockAuthorServer) RequestsFor(fieldPath string) []ReceivedRequest {
	var out []ReceivedRequest
	for _, req := range m.Requests() {
		if req.FieldPath == fieldPath {
			out = append(out, req)
		}
	}
	return out
}

// DialogMarkup renders the edit dialog as the host sends it when the dialog
// becomes ready, with option sets taken from the fragment.
func (m *MockAuthorServer) DialogMarkup(componentPath, fragmentPath string, elements []string, variation string, controls templates.ParagraphControls) (string, error) {
	m.mu.Lock()
	fragment := m.fragments[fragmentPath]
	m.mu.Unlock()

	controls.FieldPath = m.paths.ParagraphControls
	return templates.DialogString(templates.Dialog{
		ComponentPath: componentPath,
		FragmentPath:  fragmentPath,
		Elements: templates.ElementNamesField{
			FieldPath:   m.paths.ElementNames,
			Options:     toItems(fragment.Elements),
			Entries:     elements,
			AddDisabled: fragmentPath == "",
		},
		Variation: templates.VariationField{
			FieldPath: m.paths.VariationName,
			Options:   toItems(fragment.Variations),
			Value:     variation,
			Disabled:  fragmentPath == "",
		},
		Controls: controls,
	})
}

func (m *MockAuthorServer) handle(w http.ResponseWriter, r *http.Request) {
	fieldPath := strings.TrimSuffix(r.URL.Path, ".html")
	query := r.URL.Query()
	fragmentPath := query.Get(messages.ParamFragmentPath)

	m.mu.Lock()
	m.requests = append(m.requests, ReceivedRequest{
		FieldPath: fieldPath,
		Query:     query,
		Timestamp: time.Now(),
	})
	release := m.holds[fragmentPath]
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}

	m.mu.Lock()
	status, failing := m.failures[fragmentPath]
	fragment := m.fragments[fragmentPath]
	m.mu.Unlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var err error
	switch fieldPath {
	case m.paths.ElementNames:
		err = templates.RenderElementNames(w, templates.ElementNamesField{
			FieldPath: fieldPath,
			Options:   toItems(fragment.Elements),
		})
	case m.paths.VariationName:
		err = templates.RenderVariation(w, templates.VariationField{
			FieldPath: fieldPath,
			Options:   toItems(fragment.Variations),
		})
	case m.paths.ParagraphControls:
		elementName := query.Get(messages.ParamElementName)
		rendered := fragment.Paragraphs && (elementName == "" || fragment.Elements.Contains(elementName))
		err = templates.RenderControls(w, templates.ParagraphControls{
			FieldPath: fieldPath,
			Rendered:  rendered,
			Scopes:    templates.DefaultScopes,
			Scope:     templates.DefaultScopes[0].Value,
		})
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Errorf("Mock author server failed to render %s: %v", fieldPath, err)
	}
}

func toItems(options OptionSet) []templates.Item {
	items := make([]templates.Item, 0, len(options))
	for _, o := range options {
		items = append(items, templates.Item{Value: o.Value, Label: o.Label})
	}
	return items
}
