package bridge

import "testing"

func TestRenderMarkdown(t *testing.T) {
	ctx, out, err := RenderMarkdown(5, "# hi")
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	rendered, ok := out.(string)
	if !ok {
		t.Fatalf("output = %T, want string", out)
	}
	if rendered == "" {
		t.Error("rendered markdown is empty")
	}
	wantCtx := 5 + len(rendered)
	if ctx != wantCtx {
		t.Errorf("ctx = %v, want %d", ctx, wantCtx)
	}
}

func TestRenderMarkdown_ZeroValueContext(t *testing.T) {
	ctx, out, err := RenderMarkdown(nil, "plain text")
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	rendered := out.(string)
	if ctx != len(rendered) {
		t.Errorf("ctx = %v, want %d (nil context should behave as zero)", ctx, len(rendered))
	}
}

func TestRenderMarkdown_RejectsNonString(t *testing.T) {
	_, _, err := RenderMarkdown(0, 123)
	if err == nil {
		t.Fatal("RenderMarkdown() with a non-string message should return an error")
	}
}
