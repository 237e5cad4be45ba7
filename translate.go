// Package ompj wires the five translation components into the single
// call external callers need: parse, build the Class Map, scan
// pragmas, order directives, run the Directive Orchestrator, and render
// the final text.
package ompj

import (
	"bytes"
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/viant/afs"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/orchestrate"
	"github.com/viant/ompj/internal/rewrite"
	"github.com/viant/ompj/pragma"
)

// Translate parses src as one host-language compilation unit and
// rewrites every recognized pragma-annotated region into its
// thread-parallel equivalent.
func Translate(ctx context.Context, src []byte, cfg *Config) (*Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("ompj: parse: %w", err)
	}
	root := tree.RootNode()

	classes, err := classmap.Build(root, src)
	if err != nil {
		return nil, fmt.Errorf("ompj: build class map: %w", err)
	}

	directives, err := pragma.Scan(root, src)
	if err != nil {
		return nil, fmt.Errorf("ompj: scan pragmas: %w", err)
	}

	rewriter := rewrite.New(src)
	orch := orchestrate.New(rewriter, classes, src, orchestrate.Config{
		Template: cfg.templateConfig(),
		Logger:   cfg.logger(),
	})
	if err := orch.Translate(directives); err != nil {
		return nil, fmt.Errorf("ompj: translate: %w", err)
	}

	out, err := rewriter.Render()
	if err != nil {
		return nil, fmt.Errorf("ompj: render: %w", err)
	}

	result := &Result{Source: out}
	for _, d := range directives {
		result.Directives = append(result.Directives, reportFor(d))
	}
	return result, nil
}

// TranslateFile reads srcURL through fs, translates it, and uploads the
// rewritten source to dstURL — the afs-mediated read/translate/write
// loop grounded on inspector/coder/coder.go's StoreProject and
// inspector/info.Project.CreateDocuments's fs.DownloadWithURL pattern.
func TranslateFile(ctx context.Context, fs afs.Service, srcURL, dstURL string, cfg *Config) (*Result, error) {
	src, err := fs.DownloadWithURL(ctx, srcURL)
	if err != nil {
		return nil, fmt.Errorf("ompj: download %s: %w", srcURL, err)
	}

	result, err := Translate(ctx, src, cfg)
	if err != nil {
		return nil, err
	}

	if err := fs.Upload(ctx, dstURL, os.FileMode(0644), bytes.NewReader(result.Source)); err != nil {
		return nil, fmt.Errorf("ompj: upload %s: %w", dstURL, err)
	}
	return result, nil
}
