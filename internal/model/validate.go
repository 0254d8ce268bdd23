package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateIdentifiers rejects pipelines whose nodes share an identifier after
// normalization. A synthesized positional identifier can collide with an
// explicit one, so both kinds are checked.
func ValidateIdentifiers(nodes []Node) error {
	var ve ValidationError

	first := make(map[NodeKey]int, len(nodes))
	for i, n := range NormalizeNodes(nodes) {
		if j, ok := first[n.Key()]; ok {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fmt.Sprintf("nodes[%d].id", i),
				Message: fmt.Sprintf("duplicate identifier %q (first used by nodes[%d])", n.ID, j),
			})
			continue
		}
		first[n.Key()] = i
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
