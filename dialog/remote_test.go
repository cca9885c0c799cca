package dialog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zenibako/fragsync/messages"
)

func TestHTTPRemoteFetchOptions(t *testing.T) {
	server := NewMockAuthorServer(DefaultMockPaths)
	defer server.Close()
	server.AddFragment(MockFragment{Path: fragmentB, Elements: elementsB, Variations: variants})

	options, err := server.Remote().FetchOptions(context.Background(), fragmentB)
	if err != nil {
		t.Fatalf("FetchOptions failed: %v", err)
	}
	if !options.Elements.Equal(elementsB) {
		t.Errorf("Elements = %v, want %v", options.Elements, elementsB)
	}
	if !options.Variations.Equal(variants) {
		t.Errorf("Variations = %v, want %v", options.Variations, variants)
	}

	if got := len(server.Requests()); got != 2 {
		t.Errorf("Expected 2 requests in total, got %d", got)
	}
	for _, path := range []string{DefaultMockPaths.ElementNames, DefaultMockPaths.VariationName} {
		reqs := server.RequestsFor(path)
		if len(reqs) != 1 {
			t.Fatalf("Expected 1 request for %s, got %d", path, len(reqs))
		}
		if got := reqs[0].Query.Get(messages.ParamFragmentPath); got != fragmentB {
			t.Errorf("fragmentPath = %q, want %q", got, fragmentB)
		}
	}
}

func TestHTTPRemoteFetchOptionsFailure(t *testing.T) {
	server := NewMockAuthorServer(DefaultMockPaths)
	defer server.Close()
	server.FailFragment(fragmentB, http.StatusNotFound)

	_, err := server.Remote().FetchOptions(context.Background(), fragmentB)
	if err == nil {
		t.Fatal("Expected an error")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %T: %v", err, err)
	}
	if fetchErr.Field != DefaultMockPaths.ElementNames && fetchErr.Field != DefaultMockPaths.VariationName {
		t.Errorf("Unexpected field %q", fetchErr.Field)
	}
}

func TestHTTPRemoteRejectsOversizedMarkup(t *testing.T) {
	item := `<coral-select-item value="v">Label</coral-select-item>`
	oversized := `<coral-select name="./elementNames">` +
		strings.Repeat(item, maxMarkupSize/len(item)+1) + `</coral-select>`
	variations := `<coral-select name="./variationName"><coral-select-item value="master">Master</coral-select-item></coral-select>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "elementNames") {
			_, _ = w.Write([]byte(oversized))
			return
		}
		_, _ = w.Write([]byte(variations))
	}))
	defer server.Close()

	remote := NewHTTPRemote(messages.NewEndpointBuilder(server.URL), DefaultMockPaths)
	_, err := remote.FetchOptions(context.Background(), fragmentA)
	if !errors.Is(err, ErrMarkupTooLarge) {
		t.Fatalf("Expected ErrMarkupTooLarge, got %v", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Field != DefaultMockPaths.ElementNames {
		t.Errorf("Expected a *FetchError for %s, got %v", DefaultMockPaths.ElementNames, err)
	}
}

func TestHTTPRemoteFetchControls(t *testing.T) {
	server := NewMockAuthorServer(DefaultMockPaths)
	defer server.Close()
	server.AddFragment(MockFragment{Path: fragmentA, Elements: elementsA, Variations: variants, Paragraphs: true})

	query := ControlsQuery{ComponentPath: testComponent, FragmentPath: fragmentA, ElementName: "body"}
	controls, err := server.Remote().FetchControls(context.Background(), query)
	if err != nil {
		t.Fatalf("FetchControls failed: %v", err)
	}
	if !controls.Rendered || controls.Scope != "all" || len(controls.Scopes) != 2 {
		t.Errorf("Controls = %+v", controls)
	}

	reqs := server.RequestsFor(DefaultMockPaths.ParagraphControls)
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(reqs))
	}
	q := reqs[0].Query
	if q.Get(messages.ParamComponentPath) != testComponent || q.Get(messages.ParamElementName) != "body" {
		t.Errorf("Unexpected query %v", q)
	}

	// an element without paragraphs yields no controls
	query.ElementName = "missing"
	controls, err = server.Remote().FetchControls(context.Background(), query)
	if err != nil {
		t.Fatalf("FetchControls failed: %v", err)
	}
	if controls.Rendered {
		t.Errorf("Expected controls not rendered, got %+v", controls)
	}
}

func TestHTTPRemoteSendsCredentials(t *testing.T) {
	var user, pass, requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		requestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	remote := NewHTTPRemote(messages.NewEndpointBuilder(server.URL), DefaultMockPaths)
	remote.SetBasicAuth("admin", "secret")
	if _, err := remote.FetchControls(context.Background(), ControlsQuery{}); err != nil {
		t.Fatalf("FetchControls failed: %v", err)
	}
	if user != "admin" || pass != "secret" {
		t.Errorf("Credentials = %q/%q", user, pass)
	}
	if requestID == "" {
		t.Error("Expected an X-Request-ID header")
	}
}

func TestHTTPRemoteHonoursContext(t *testing.T) {
	server := NewMockAuthorServer(DefaultMockPaths)
	defer server.Close()
	release := server.Hold(fragmentA)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := server.Remote().FetchOptions(ctx, fragmentA)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
