// Package fluxlog defines the minimal structured logging seam flux's
// components accept, grounded on itsneelabh/gomind's core.Logger: no
// component forces a concrete logging backend on its caller's binary, and
// the default is silent.
package fluxlog

import "github.com/go-logr/logr"

// Logger is the structured logging interface every flux component accepts.
// Fields follow the same "message plus key/value map" shape gomind's
// core.Logger uses.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoOp discards everything. It is the default when a component is built
// without an explicit Logger.
type NoOp struct{}

func (NoOp) Debug(string, map[string]any) {}
func (NoOp) Info(string, map[string]any)  {}
func (NoOp) Warn(string, map[string]any)  {}
func (NoOp) Error(string, map[string]any) {}

// Default is the shared no-op logger instance.
var Default Logger = NoOp{}

// logrAdapter adapts an r.go-logr/logr.Logger onto Logger, so callers who
// already wire zap/zerolog/klog through logr can plug it into flux without
// flux depending on any specific backend.
type logrAdapter struct {
	l logr.Logger
}

// FromLogr adapts l onto Logger. Debug/Info map to V(1)/V(0); Warn has no
// direct logr equivalent so it logs at V(0) with a "level":"warn" field;
// Error uses logr's Error method.
func FromLogr(l logr.Logger) Logger { return logrAdapter{l: l} }

func toKV(fields map[string]any) []any {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}

func (a logrAdapter) Debug(msg string, fields map[string]any) {
	a.l.V(1).Info(msg, toKV(fields)...)
}

func (a logrAdapter) Info(msg string, fields map[string]any) {
	a.l.V(0).Info(msg, toKV(fields)...)
}

func (a logrAdapter) Warn(msg string, fields map[string]any) {
	kv := append(toKV(fields), "level", "warn")
	a.l.V(0).Info(msg, kv...)
}

func (a logrAdapter) Error(msg string, fields map[string]any) {
	a.l.Error(nil, msg, toKV(fields)...)
}
