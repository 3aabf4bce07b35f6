package rules

import (
	"fmt"
	"regexp"
)

// Predicate reports whether a field value satisfies a compiled check.
type Predicate func(value string) bool

// CheckCompiler compiles a rule's check expression into a Predicate.
type CheckCompiler func(check string) (Predicate, error)

// Registry maps rule check types to their compilers. New check types
// (numeric-range, enum-membership, ...) register here without touching the
// evaluator.
type Registry struct {
	compilers map[string]CheckCompiler
}

// NewRegistry creates a Registry with the built-in regex check type
func NewRegistry() *Registry {
	r := &Registry{
		compilers: make(map[string]CheckCompiler),
	}
	r.Register(CheckTypeRegex, compileRegexCheck)
	return r
}

// Register adds or replaces the compiler for a check type
func (r *Registry) Register(checkType string, compiler CheckCompiler) {
	r.compilers[checkType] = compiler
}

// Known reports whether a check type has a registered compiler
func (r *Registry) Known(checkType string) bool {
	_, ok := r.compilers[checkType]
	return ok
}

// Compile compiles a rule's check through its type's registered compiler.
// Unknown check types fail closed.
func (r *Registry) Compile(rule Rule) (Predicate, error) {
	compiler, ok := r.compilers[rule.Type]
	if !ok {
		return nil, fmt.Errorf("rule %s has unknown check type %q", rule.RuleID, rule.Type)
	}
	pred, err := compiler(rule.Check)
	if err != nil {
		return nil, fmt.Errorf("compiling check for rule %s: %w", rule.RuleID, err)
	}
	return pred, nil
}

// compileRegexCheck anchors the pattern at the start of the value. A match
// against any prefix of the value passes; patterns wanting a full match
// carry their own trailing anchor.
func compileRegexCheck(check string) (Predicate, error) {
	re, err := regexp.Compile(`\A(?:` + check + `)`)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}
