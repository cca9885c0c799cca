package dialog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zenibako/fragsync/messages"
)

// OptionSource retrieves the option sets of the dependent fields as rendered
// for a fragment.
type OptionSource interface {
	FetchOptions(ctx context.Context, fragmentPath string) (FieldOptions, error)
}

// ControlsSource retrieves the paragraph control group
type ControlsSource interface {
	FetchControls(ctx context.Context, query ControlsQuery) (ParagraphControls, error)
}

// Remote is everything a session requests from the author instance
type Remote interface {
	OptionSource
	ControlsSource
}

// maxMarkupSize bounds a single field markup response
const maxMarkupSize = 4 << 20

// HTTPRemote requests field markup from an author instance.
type HTTPRemote struct {
	client    *http.Client
	endpoints *messages.EndpointBuilder
	paths     FieldPaths
	username  string
	password  string
}

// NewHTTPRemote creates a remote for the dialog fields at paths. The client
// defaults to http.DefaultClient.
func NewHTTPRemote(endpoints *messages.EndpointBuilder, paths FieldPaths) *HTTPRemote {
	return &HTTPRemote{
		client:    http.DefaultClient,
		endpoints: endpoints,
		paths:     paths,
	}
}

// SetHTTPClient replaces the HTTP client, e.g. to configure a timeout
func (r *HTTPRemote) SetHTTPClient(client *http.Client) {
	if client != nil {
		r.client = client
	}
}

// SetBasicAuth sets credentials sent with every request
func (r *HTTPRemote) SetBasicAuth(username, password string) {
	r.username = username
	r.password = password
}

// FetchOptions requests both dependent fields concurrently. It succeeds only
// if both requests succeed; otherwise it returns a *FetchError.
func (r *HTTPRemote) FetchOptions(ctx context.Context, fragmentPath string) (FieldOptions, error) {
	var options FieldOptions
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		body, err := r.get(gctx, r.endpoints.OptionsURL(r.paths.ElementNames, fragmentPath))
		if err != nil {
			return &FetchError{Field: r.paths.ElementNames, Err: err}
		}
		elements, err := ParseElementOptions(bytes.NewReader(body))
		if err != nil {
			return &FetchError{Field: r.paths.ElementNames, Err: err}
		}
		options.Elements = elements
		return nil
	})

	g.Go(func() error {
		body, err := r.get(gctx, r.endpoints.OptionsURL(r.paths.VariationName, fragmentPath))
		if err != nil {
			return &FetchError{Field: r.paths.VariationName, Err: err}
		}
		variations, err := ParseVariationOptions(bytes.NewReader(body))
		if err != nil {
			return &FetchError{Field: r.paths.VariationName, Err: err}
		}
		options.Variations = variations
		return nil
	})

	if err := g.Wait(); err != nil {
		return FieldOptions{}, err
	}
	return options, nil
}

// FetchControls requests the paragraph control group. An empty response is a
// group that is not rendered.
func (r *HTTPRemote) FetchControls(ctx context.Context, query ControlsQuery) (ParagraphControls, error) {
	u := r.endpoints.ControlsURL(r.paths.ParagraphControls, query.ComponentPath, query.FragmentPath, query.ElementName)
	body, err := r.get(ctx, u)
	if err != nil {
		return ParagraphControls{}, &FetchError{Field: r.paths.ParagraphControls, Err: err}
	}
	return ParseControls(bytes.NewReader(body))
}

func (r *HTTPRemote) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "text/html")
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}

	log.Debug("Requesting field markup", "url", u, "request_id", requestID)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, u)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMarkupSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", u, err)
	}
	if len(body) > maxMarkupSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMarkupTooLarge, u, maxMarkupSize)
	}
	return body, nil
}
