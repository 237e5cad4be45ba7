package ompj

import (
	"log/slog"

	"github.com/viant/ompj/internal/template"
)

// Config carries the per-translation options external callers may
// override: the textual executor-acquisition and default-thread-count
// expressions internal/template splices into synthesized code, and the
// logger the Directive Orchestrator narrates progress to. A nil Config
// (or a zero-value one) uses internal/template's defaults and
// slog.Default().
type Config struct {
	// ExecutorExpr is the expression text acquiring a worker pool sized
	// to a generated thread-count variable, e.g.
	// "java.util.concurrent.Executors.newFixedThreadPool(%s)". Empty
	// uses internal/template.DefaultConfig's.
	ExecutorExpr string

	// ThreadNumExpr is the expression text used for a directive with no
	// num_threads pragma attribute, e.g.
	// "Runtime.getRuntime().availableProcessors()".
	ThreadNumExpr string

	Logger *slog.Logger
}

func (c *Config) templateConfig() template.Config {
	cfg := template.DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.ExecutorExpr != "" {
		cfg.ExecutorExpr = c.ExecutorExpr
	}
	if c.ThreadNumExpr != "" {
		cfg.DefaultThreadNum = c.ThreadNumExpr
	}
	return cfg
}

func (c *Config) logger() *slog.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
