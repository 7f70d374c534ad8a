// Package template implements the small substitution-expression syntax
// embedded in job protocol command lines and credential fields.
//
// An expression is a name between a pair of delimiters, `<% %>` by
// default, e.g. `<% $parameters.batchSize %>`. Names are resolved as
// dotted paths against a set of named roots; bracketed numeric indices
// (`a[0]`) are rewritten to dotted-path form (`a.0`) before lookup so
// positional access into sequences works. Expressions that do not
// resolve are kept verbatim so that a later pipeline stage can resolve
// them, or so an unresolved reference is visible in the output.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultOpen and DefaultClose are the default expression delimiters.
	DefaultOpen  = "<%"
	DefaultClose = "%>"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// Renderer substitutes expressions against a fixed pair of delimiters.
// The zero value is not usable; use New.
type Renderer struct {
	open  string
	close string
}

// New returns a Renderer with the given delimiters. Empty delimiters
// fall back to the defaults.
func New(open, close string) *Renderer {
	if open == "" || close == "" {
		open, close = DefaultOpen, DefaultClose
	}
	return &Renderer{open: open, close: close}
}

// Render substitutes every expression in text against roots and returns
// the space-trimmed result. There is no failure path: unresolved
// expressions round-trip as `<% name %>`.
func (r *Renderer) Render(text string, roots map[string]any) string {
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, r.open)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(r.open):], r.close)
		if end < 0 {
			// Unterminated expression, keep the tail as-is.
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])

		name := strings.TrimSpace(rest[start+len(r.open) : start+len(r.open)+end])
		name = bracketIndex.ReplaceAllString(name, ".$1")
		if value, ok := lookup(roots, name); ok {
			b.WriteString(toString(value))
		} else {
			b.WriteString(fmt.Sprintf("%s %s %s", r.open, name, r.close))
		}

		rest = rest[start+len(r.open)+end+len(r.close):]
	}
	return strings.TrimSpace(b.String())
}

// Render substitutes with the default delimiters.
func Render(text string, roots map[string]any) string {
	return New(DefaultOpen, DefaultClose).Render(text, roots)
}

// lookup walks a dotted path through maps and slices. A nil value at the
// end of the path counts as a miss, matching the renderer's
// keep-unresolved semantics.
func lookup(roots map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = roots
	for _, seg := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		case []string:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		case map[string]string:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}
