package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type TemplateName string

const (
	TemplateTrendSummary TemplateName = "trend_summary.tmpl"
)

// PromptBuilder renders the embedded prompt templates. The set is parsed
// once, on first use.
type PromptBuilder struct {
	once sync.Once
	set  *template.Template
	err  error
}

var defaultBuilder = NewPromptBuilder()

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

func DefaultPromptBuilder() *PromptBuilder {
	return defaultBuilder
}

func (pb *PromptBuilder) load() (*template.Template, error) {
	pb.once.Do(func() {
		pb.set, pb.err = template.New("prompts").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
		if pb.err != nil {
			pb.err = fmt.Errorf("parse prompt templates: %w", pb.err)
		}
	})
	return pb.set, pb.err
}

// Render executes the named template. Trailing newlines from the template
// file are dropped so prompts end exactly at their last character.
func (pb *PromptBuilder) Render(name TemplateName, data any) (string, error) {
	set, err := pb.load()
	if err != nil {
		return "", err
	}

	tmpl := set.Lookup(string(name))
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt template %s", name)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
