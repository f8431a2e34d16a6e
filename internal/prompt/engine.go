// Package prompt renders generation requests from the aggregated
// statistics. A minimal substitution engine keeps the prompt text in
// declared templates instead of string concatenation scattered through
// the composer: flat {{field}} interpolation, {{#if field}} blocks, and
// {{#each list}} repetition with {{this.field}}. Pure data
// interpolation; templates cannot execute anything.
package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Engine renders templates against a flat data map.
type Engine struct{}

// NewEngine creates a template engine.
func NewEngine() *Engine {
	return &Engine{}
}

var (
	eachRe  = regexp.MustCompile(`(?s)\{\{#each\s+([\w.]+)\}\}(.*?)\{\{/each\}\}`)
	ifRe    = regexp.MustCompile(`(?s)\{\{#if\s+([\w.]+)\}\}(.*?)\{\{/if\}\}`)
	thisRe  = regexp.MustCompile(`\{\{this\.([\w.]+)\}\}`)
	fieldRe = regexp.MustCompile(`\{\{([\w.]+)\}\}`)
)

// Render substitutes data into the template. Unknown fields render as
// empty strings; a falsy {{#if}} drops its block; {{#each}} over a
// missing or empty list renders nothing.
func (e *Engine) Render(template string, data map[string]any) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	out := eachRe.ReplaceAllStringFunc(template, func(m string) string {
		groups := eachRe.FindStringSubmatch(m)
		return e.renderEach(groups[1], groups[2], data)
	})

	out = ifRe.ReplaceAllStringFunc(out, func(m string) string {
		groups := ifRe.FindStringSubmatch(m)
		if truthy(data[groups[1]]) {
			return groups[2]
		}
		return ""
	})

	return fieldRe.ReplaceAllStringFunc(out, func(m string) string {
		groups := fieldRe.FindStringSubmatch(m)
		v, ok := data[groups[1]]
		if !ok {
			return ""
		}
		return formatValue(v)
	})
}

func (e *Engine) renderEach(field, body string, data map[string]any) string {
	items := listItems(data[field])
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	for _, item := range items {
		b.WriteString(thisRe.ReplaceAllStringFunc(body, func(m string) string {
			groups := thisRe.FindStringSubmatch(m)
			v, ok := item[groups[1]]
			if !ok {
				return ""
			}
			return formatValue(v)
		}))
	}
	return b.String()
}

func listItems(v any) []map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case []map[string]any:
		return t
	case []any:
		items := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if m, ok := el.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	default:
		return nil
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case float64:
		return t != 0
	case []map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
