package rag

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template content is configuration: the defaults below ship in code and a
// YAML prompts file can replace any of them without a rebuild.

const defaultGuidelines = "Restate the question at the start of the answer, then give the answer on the following line. " +
	"Structure the final answer so it is easy for any citizen to read. " +
	"Keep the exact name, number/year and precise articles of every legislative act and regulation mentioned in the context " +
	"(for example: G.O. no.99/2000, Law no.61/1991, Law no.215/2001 art.36 para.(4) let.e, L.C.D. no.102/2009). " +
	"Keep every link that appears in the context without modifying it in any way. " +
	"Select strictly the articles that directly approve, repeal or amend the legislative content or regulations in question. " +
	"Do not add remarks, personal commentary or extra notes that do not help answer the question."

const defaultSourceTemplate = `You are a virtual assistant answering questions from the public on behalf of the city hall.
Question: {{.Question}}
Follow these guidelines strictly: {{.Guidelines}}
End the answer with two sections listing what supported it:
**References**: <acts and articles cited from the context>
**Links**: <links cited from the context, verbatim>
Answer based on this context:
{{.Docs}}`

const defaultFusionTemplate = `You are a virtual assistant answering questions from the public on behalf of the city hall.
Question: {{.Question}}
Follow these guidelines strictly: {{.Guidelines}}
End the answer with two sections listing what supported it:
**References**: <acts and articles cited from the context>
**Links**: <links cited from the context, verbatim>
Answer the question by reconciling these two draft answers into one:
{{.AnswerA}}
{{.AnswerB}}`

// PromptTemplates is the overridable template set. Empty fields fall back to
// the built-in defaults.
type PromptTemplates struct {
	Guidelines string `yaml:"guidelines"`
	Source     string `yaml:"source"`
	Fusion     string `yaml:"fusion"`
}

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() PromptTemplates {
	return PromptTemplates{
		Guidelines: defaultGuidelines,
		Source:     defaultSourceTemplate,
		Fusion:     defaultFusionTemplate,
	}
}

// LoadTemplates reads a YAML prompts file and overlays it on the defaults.
func LoadTemplates(path string) (PromptTemplates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptTemplates{}, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}

	var override PromptTemplates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return PromptTemplates{}, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	templates := DefaultTemplates()
	if override.Guidelines != "" {
		templates.Guidelines = override.Guidelines
	}
	if override.Source != "" {
		templates.Source = override.Source
	}
	if override.Fusion != "" {
		templates.Fusion = override.Fusion
	}
	return templates, nil
}

// PromptComposer renders source and fusion prompts. It performs no I/O and is
// deterministic: the same inputs always produce the same prompt text.
type PromptComposer struct {
	guidelines string
	source     *template.Template
	fusion     *template.Template
}

func NewPromptComposer(templates PromptTemplates) (*PromptComposer, error) {
	source, err := template.New("source").Parse(templates.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid source prompt template: %w", err)
	}
	fusion, err := template.New("fusion").Parse(templates.Fusion)
	if err != nil {
		return nil, fmt.Errorf("invalid fusion prompt template: %w", err)
	}
	return &PromptComposer{guidelines: templates.Guidelines, source: source, fusion: fusion}, nil
}

// SourcePrompt builds the system prompt grounding an answer in one corpus's
// retrieved snippets.
func (c *PromptComposer) SourcePrompt(question string, docs []Entry) (string, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	data := struct {
		Question   string
		Guidelines string
		Docs       string
	}{question, c.guidelines, strings.Join(texts, "\n\n")}

	var out strings.Builder
	if err := c.source.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render source prompt: %w", err)
	}
	return out.String(), nil
}

// FusionPrompt builds the system prompt asking the model to reconcile the two
// independently-grounded draft answers.
func (c *PromptComposer) FusionPrompt(question, answerA, answerB string) (string, error) {
	data := struct {
		Question   string
		Guidelines string
		AnswerA    string
		AnswerB    string
	}{question, c.guidelines, answerA, answerB}

	var out strings.Builder
	if err := c.fusion.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render fusion prompt: %w", err)
	}
	return out.String(), nil
}
