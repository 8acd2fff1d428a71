// Package template renders system message bodies from named templates.
//
// Templates use text/template syntax. The platform registers its
// built-in notification templates in DefaultRegistry; applications can
// add their own or build an isolated Registry for tests.
package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// ErrNotFound is returned when a template id is not registered.
var ErrNotFound = errors.New("template: not found")

// Registry holds named message templates. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*template.Template)}
}

// Register parses and stores a template under the given id, replacing
// any previous registration.
func (r *Registry) Register(id, body string) error {
	if id == "" {
		return errors.New("template: empty id")
	}
	tmpl, err := template.New(id).Option("missingkey=zero").Parse(body)
	if err != nil {
		return fmt.Errorf("template: parse %q: %w", id, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[id] = tmpl
	return nil
}

// MustRegister is Register for package init blocks.
func (r *Registry) MustRegister(id, body string) {
	if err := r.Register(id, body); err != nil {
		panic(err)
	}
}

// Has reports whether an id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[id]
	return ok
}

// IDs returns the registered template ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Render executes the template with the given data. Returns ErrNotFound
// when the id is not registered.
func (r *Registry) Render(id string, data any) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[id]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template: render %q: %w", id, err)
	}
	return buf.String(), nil
}
