package prompt

import (
	"strings"
	"testing"
)

func TestBuildTrendSummaryPromptJoinsTitles(t *testing.T) {
	got, err := BuildTrendSummaryPrompt([]string{"标题一", "title two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(got, "：标题一, title two") {
		t.Fatalf("titles not embedded as expected: %q", got)
	}
	if !strings.Contains(got, "150字以内") {
		t.Fatalf("length hint missing: %q", got)
	}
}

func TestBuildTrendSummaryPromptEmptyTitles(t *testing.T) {
	got, err := BuildTrendSummaryPrompt(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(got, "摘要：") {
		t.Fatalf("unexpected prompt tail: %q", got)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	pb := NewPromptBuilder()
	if _, err := pb.Render(TemplateName("missing.tmpl"), nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
