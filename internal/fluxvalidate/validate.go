// Package fluxvalidate provides the single shared validator.Validate
// instance config structs across flux use to fail fast at construction
// time, per SPEC_FULL.md §2.3.
package fluxvalidate

import "github.com/go-playground/validator/v10"

var instance = validator.New()

// Struct validates s against its `validate` struct tags.
func Struct(s any) error {
	return instance.Struct(s)
}
