package dispatch

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Options carries deployment metadata attached to a route. The registry
// stores it verbatim; it never changes dispatch behavior.
type Options struct {
	Timeout     time.Duration
	MemorySize  int
	Description string
}

// RouteDefinition is one registered route. ID is derived from Method and
// Path at registration time and is unique within a Registry.
type RouteDefinition struct {
	ID      string
	Method  string
	Path    string
	Handler http.HandlerFunc
	Options Options
}

// Registry holds an ordered route table keyed by derived route id.
// Registration methods chain so a full table reads as one expression.
type Registry struct {
	routes []RouteDefinition
	byID   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

var paramSegment = regexp.MustCompile(`^\{(\w+)\}$`)

// RouteID derives the canonical route id: lower-cased method, then each path
// segment with `{x}` rewritten to `Byx` and only the first character
// upper-cased. The rest of the segment is preserved as written, so
// "dashboard-summary" stays "Dashboard-summary".
func RouteID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		if m := paramSegment.FindStringSubmatch(seg); m != nil {
			seg = "By" + m[1]
		}
		b.WriteString(strings.ToUpper(seg[:1]))
		b.WriteString(seg[1:])
	}
	return b.String()
}

func (r *Registry) add(method, path string, h http.HandlerFunc, opts Options) *Registry {
	id := RouteID(method, path)
	if _, ok := r.byID[id]; ok {
		panic(fmt.Sprintf("dispatch: duplicate route id %q (%s %s)", id, method, path))
	}
	r.byID[id] = len(r.routes)
	r.routes = append(r.routes, RouteDefinition{
		ID:      id,
		Method:  method,
		Path:    path,
		Handler: h,
		Options: opts,
	})
	return r
}

func (r *Registry) Get(path string, h http.HandlerFunc, opts Options) *Registry {
	return r.add(http.MethodGet, path, h, opts)
}

func (r *Registry) Post(path string, h http.HandlerFunc, opts Options) *Registry {
	return r.add(http.MethodPost, path, h, opts)
}

func (r *Registry) Put(path string, h http.HandlerFunc, opts Options) *Registry {
	return r.add(http.MethodPut, path, h, opts)
}

func (r *Registry) Patch(path string, h http.HandlerFunc, opts Options) *Registry {
	return r.add(http.MethodPatch, path, h, opts)
}

func (r *Registry) Delete(path string, h http.HandlerFunc, opts Options) *Registry {
	return r.add(http.MethodDelete, path, h, opts)
}

// Routes returns the table in registration order.
func (r *Registry) Routes() []RouteDefinition {
	out := make([]RouteDefinition, len(r.routes))
	copy(out, r.routes)
	return out
}

// Lookup finds a route by its derived id.
func (r *Registry) Lookup(id string) (RouteDefinition, error) {
	i, ok := r.byID[id]
	if !ok {
		return RouteDefinition{}, fmt.Errorf("dispatch: no route with id %q", id)
	}
	return r.routes[i], nil
}

// ExtractPathParams pulls the named keys out of params in order. A missing
// key is an error naming that key.
func ExtractPathParams(params map[string]string, keys ...string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := params[k]
		if !ok {
			return nil, fmt.Errorf("dispatch: missing path parameter %q", k)
		}
		out = append(out, v)
	}
	return out, nil
}
