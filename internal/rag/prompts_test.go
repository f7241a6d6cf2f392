package rag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePromptIsDeterministic(t *testing.T) {
	composer, err := NewPromptComposer(DefaultTemplates())
	require.NoError(t, err)

	docs := []Entry{{Index: 0, Text: "ordinance text"}, {Index: 3, Text: "regulation text"}}

	first, err := composer.SourcePrompt("when is the market open?", docs)
	require.NoError(t, err)
	second, err := composer.SourcePrompt("when is the market open?", docs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "when is the market open?")
	assert.Contains(t, first, "ordinance text\n\nregulation text")
}

func TestFusionPromptContainsBothDrafts(t *testing.T) {
	composer, err := NewPromptComposer(DefaultTemplates())
	require.NoError(t, err)

	prompt, err := composer.FusionPrompt("question", "draft from regulations", "draft from services")
	require.NoError(t, err)
	assert.Contains(t, prompt, "draft from regulations")
	assert.Contains(t, prompt, "draft from services")
	assert.Contains(t, prompt, "question")
}

func TestLoadTemplatesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "source: |\n  ASK {{.Question}} WITH {{.Docs}}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	templates, err := LoadTemplates(path)
	require.NoError(t, err)

	// Overridden field replaced, the rest falls back to defaults.
	assert.Contains(t, templates.Source, "ASK {{.Question}}")
	assert.Equal(t, DefaultTemplates().Fusion, templates.Fusion)
	assert.Equal(t, DefaultTemplates().Guidelines, templates.Guidelines)

	composer, err := NewPromptComposer(templates)
	require.NoError(t, err)
	prompt, err := composer.SourcePrompt("q", []Entry{{Text: "doc"}})
	require.NoError(t, err)
	assert.Equal(t, "ASK q WITH doc\n", prompt)
}

func TestLoadTemplatesMissingFile(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewPromptComposerRejectsBadTemplate(t *testing.T) {
	templates := DefaultTemplates()
	templates.Fusion = "{{.Unclosed"
	_, err := NewPromptComposer(templates)
	assert.Error(t, err)
}
