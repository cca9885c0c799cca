package dialog

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ScopeRange is the paragraph scope that enables the range and headings fields
const ScopeRange = "range"

// ParagraphControls is the rendered paragraph control group. A group that is
// not rendered has no fields at all.
type ParagraphControls struct {
	Rendered        bool      `json:"rendered"`
	Scopes          OptionSet `json:"scopes,omitempty"`
	Scope           string    `json:"scope,omitempty"`
	Range           string    `json:"range,omitempty"`
	Headings        bool      `json:"headings,omitempty"`
	RangeEnabled    bool      `json:"range_enabled,omitempty"`
	HeadingsEnabled bool      `json:"headings_enabled,omitempty"`
}

// ParagraphState is the scope, range and headings configuration carried over
// each time the control group is rendered again.
type ParagraphState struct {
	Scope    string `json:"scope"`
	Range    string `json:"range,omitempty"`
	Headings bool   `json:"headings,omitempty"`
}

// ControlsQuery parameterizes the paragraph controls request
type ControlsQuery struct {
	ComponentPath string
	FragmentPath  string
	ElementName   string
}

// recomputeEnablement enables range and headings iff the selected scope is
// "range". Without a selected scope the fields are left as they are.
func (c *ParagraphControls) recomputeEnablement() {
	if c.Scope == "" {
		return
	}
	enabled := c.Scope == ScopeRange
	c.RangeEnabled = enabled
	c.HeadingsEnabled = enabled
}

// selectScope checks the scope radio with the given value, if offered.
func (c *ParagraphControls) selectScope(scope string) bool {
	if !c.Rendered || !c.Scopes.Contains(scope) {
		return false
	}
	c.Scope = scope
	c.recomputeEnablement()
	return true
}

func (c *ParagraphControls) apply(state *ParagraphState) {
	if !c.Rendered || state == nil {
		return
	}
	if !c.selectScope(state.Scope) {
		log.Warnf("Persisted paragraph scope %q is not offered by the rendered controls", state.Scope)
	}
	c.Range = state.Range
	c.Headings = state.Headings
}

func (c ParagraphControls) clone() ParagraphControls {
	c.Scopes = c.Scopes.clone()
	return c
}

// capturePersisted returns the state to carry over, or nil when the group is
// not rendered or has no selected scope.
func capturePersisted(c ParagraphControls) *ParagraphState {
	if !c.Rendered || c.Scope == "" {
		return nil
	}
	return &ParagraphState{
		Scope:    c.Scope,
		Range:    c.Range,
		Headings: c.Headings,
	}
}

// ValidElementNames drops placeholder entries from an element selection.
func ValidElementNames(entries []string) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry != "" {
			names = append(names, entry)
		}
	}
	return names
}

// controlsDeriver owns the paragraph control group of a session. All methods
// run on the session loop; only the remote request runs elsewhere.
type controlsDeriver struct {
	remote        ControlsSource
	componentPath string
	spawn         func(work func(ctx context.Context) func())
	metrics       *Metrics

	token     string
	controls  ParagraphControls
	persisted *ParagraphState
}

func newControlsDeriver(remote ControlsSource, componentPath string, initial ParagraphControls, spawn func(func(context.Context) func()), metrics *Metrics) *controlsDeriver {
	d := &controlsDeriver{
		remote:        remote,
		componentPath: componentPath,
		spawn:         spawn,
		metrics:       metrics,
		controls:      initial.clone(),
		persisted:     capturePersisted(initial),
	}
	d.controls.recomputeEnablement()
	return d
}

// update re-derives the control group for the given fragment and element
// selection. With two or more element names the group is removed without a
// request.
func (d *controlsDeriver) update(fragmentPath string, entries []string) {
	names := ValidElementNames(entries)
	if len(names) >= 2 {
		log.Debug("Removing paragraph controls", "elements", len(names))
		d.token = ""
		d.controls = ParagraphControls{}
		return
	}

	query := ControlsQuery{
		ComponentPath: d.componentPath,
		FragmentPath:  fragmentPath,
	}
	if len(names) == 1 {
		query.ElementName = names[0]
	}

	token := uuid.NewString()
	d.token = token
	remote := d.remote
	d.spawn(func(ctx context.Context) func() {
		start := time.Now()
		controls, err := remote.FetchControls(ctx, query)
		d.metrics.observeFetch(kindControls, time.Since(start))
		return func() { d.settle(token, query, controls, err) }
	})
}

func (d *controlsDeriver) settle(token string, query ControlsQuery, controls ParagraphControls, err error) {
	if token != d.token {
		d.metrics.staleResponse(kindControls)
		log.Debug("Dropping stale paragraph controls", "fragment", query.FragmentPath, "element", query.ElementName)
		return
	}
	d.token = ""
	if err != nil {
		log.Warn("Failed to load paragraph controls", "fragment", query.FragmentPath, "element", query.ElementName, "error", err)
		return
	}

	d.controls = controls.clone()
	if d.controls.Rendered && d.persisted != nil {
		d.controls.apply(d.persisted)
	}
	d.controls.recomputeEnablement()
}

func (d *controlsDeriver) scopeChanged(scope string) {
	if !d.controls.selectScope(scope) {
		log.Warnf("Ignoring paragraph scope %q: not offered by the current controls", scope)
		return
	}
	d.remember(func(s *ParagraphState) { s.Scope = scope })
}

func (d *controlsDeriver) rangeChanged(value string) {
	if !d.controls.Rendered {
		return
	}
	d.controls.Range = value
	d.remember(func(s *ParagraphState) { s.Range = value })
}

func (d *controlsDeriver) headingsChanged(checked bool) {
	if !d.controls.Rendered {
		return
	}
	d.controls.Headings = checked
	d.remember(func(s *ParagraphState) { s.Headings = checked })
}

// remember records a user edit so the next re-derivation keeps it
func (d *controlsDeriver) remember(edit func(*ParagraphState)) {
	if d.persisted == nil {
		d.persisted = capturePersisted(d.controls)
		return
	}
	edit(d.persisted)
}
