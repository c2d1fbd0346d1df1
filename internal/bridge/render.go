package bridge

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// RenderMarkdown is a cog.Transition suitable for splicing onto a cog
// via cog.Extend: it renders an incoming markdown message to HTML and
// adds the rendered length to an int context (a nil or non-int context
// counts as zero), demonstrating a
// transition with a real side-library call rather than a synthetic
// string operation — exactly the kind of blocking-tolerant transition
// body the worker model (spec.md §4.4) is designed to host.
func RenderMarkdown(ctx, msg any) (any, any, error) {
	markdown, ok := msg.(string)
	if !ok {
		return ctx, nil, fmt.Errorf("bridge: RenderMarkdown expects a string message, got %T", msg)
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return ctx, nil, fmt.Errorf("bridge: render markdown: %w", err)
	}

	rendered := buf.String()
	count, _ := ctx.(int)
	return count + len(rendered), rendered, nil
}
