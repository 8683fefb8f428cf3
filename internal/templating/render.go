// Package templating wraps the text template engine behind the small
// interface the load balancer needs: render a template source string with a
// set of variable bindings.
package templating

import (
	"bytes"
	"fmt"
	"text/template"
)

// Renderer renders a template source with the given bindings. Implementations
// must be safe for use from a single goroutine at a time; the reload
// coordinator guarantees no concurrent calls.
type Renderer interface {
	Render(name, source string, bindings any) (string, error)
}

// RenderError reports a malformed template or a failed execution. It aborts
// the reload request it occurred in and is never retried.
type RenderError struct {
	Name string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering template %q: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// TextRenderer renders templates with text/template.
type TextRenderer struct{}

// NewTextRenderer returns a Renderer backed by text/template.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render parses source and executes it with bindings.
func (r *TextRenderer) Render(name, source string, bindings any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(source)
	if err != nil {
		return "", &RenderError{Name: name, Err: err}
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, bindings); err != nil {
		return "", &RenderError{Name: name, Err: err}
	}

	return buf.String(), nil
}
