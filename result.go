package ompj

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"gopkg.in/yaml.v3"

	"github.com/viant/ompj/internal/directive"
)

// DirectiveReport summarizes one translated directive: YAML-tagged so a
// caller can persist Result.Directives as a translation manifest
// alongside the rewritten source (grounded on the teacher's
// inspector/info.Document pattern of a serializable per-unit summary).
type DirectiveReport struct {
	Kind         string   `yaml:"kind"`
	Location     string   `yaml:"location"`
	Captured     []string `yaml:"captured,omitempty"`
	CapturedThis bool     `yaml:"capturedThis,omitempty"`
}

// Diagnostic is a non-fatal observation surfaced alongside a successful
// translation (currently unused by Translate, which fails the whole
// unit on any rewriteerr fault; reserved for future soft warnings,
// e.g. an unrecognized but ignorable clause).
type Diagnostic struct {
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
}

// Result is the outcome of translating one compilation unit.
type Result struct {
	Source      []byte             `yaml:"-"`
	Directives  []*DirectiveReport `yaml:"directives,omitempty"`
	Diagnostics []Diagnostic       `yaml:"diagnostics,omitempty"`
}

// Manifest renders r.Directives and r.Diagnostics as YAML, the
// translation-run summary a caller persists alongside the rewritten
// source text, matching the teacher's linage.Scope/linage.Identity
// yaml.v3 struct-tag serialization.
func (r *Result) Manifest() ([]byte, error) {
	return yaml.Marshal(r)
}

func reportFor(d *directive.Directive) *DirectiveReport {
	r := &DirectiveReport{
		Kind:         d.Kind.String(),
		Location:     location(d.Region),
		CapturedThis: d.CapturedThis,
	}
	for _, v := range d.Captured {
		r.Captured = append(r.Captured, v.FullName())
	}
	return r
}

func location(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", node.StartByte(), node.EndByte())
}
