package rules

import "fmt"

// LoadError indicates the rule repository could not produce a usable rule
// set. It is fatal to the invocation; there are no partial rule sets.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading rules: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Set is a rule set loaded and compiled once, then shared read-only for the
// remainder of the process lifetime. Its staleness window equals the process
// lifetime; restart to pick up repository changes.
type Set struct {
	rules      []Rule
	predicates []Predicate
}

// LoadSet scans the repository once and compiles every rule through the
// registry. A rule with an unknown check type or an uncompilable check
// fails the whole load.
func LoadSet(store Store, registry *Registry) (*Set, error) {
	rules, err := store.Scan()
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	set := &Set{
		rules:      rules,
		predicates: make([]Predicate, len(rules)),
	}
	for i, rule := range rules {
		pred, err := registry.Compile(rule)
		if err != nil {
			return nil, &LoadError{Err: err}
		}
		set.predicates[i] = pred
	}

	return set, nil
}

// NewSet compiles an in-memory rule slice without a repository. Used by
// tests and by the rule seeding tool for validation before writes.
func NewSet(rules []Rule, registry *Registry) (*Set, error) {
	return LoadSet(staticStore(rules), registry)
}

// Rules returns the rules in evaluation order
func (s *Set) Rules() []Rule {
	return s.rules
}

// Len returns the number of rules in the set
func (s *Set) Len() int {
	return len(s.rules)
}

// Evaluate applies every rule to the extracted fields, in stored order and
// without short-circuiting, so the verdict carries the complete list of
// violations. An empty rule set always passes. Values present as empty
// strings are still checked.
func (s *Set) Evaluate(fields map[string]string) Verdict {
	var failing []string
	for i, rule := range s.rules {
		value, ok := fields[rule.Field]
		if !ok {
			failing = append(failing, missingFieldMessage(rule.Field))
			continue
		}
		if !s.predicates[i](value) {
			failing = append(failing, failureMessage(rule))
		}
	}

	return Verdict{
		Passed:       len(failing) == 0,
		FailingRules: failing,
	}
}

// staticStore adapts a rule slice to the Store interface
type staticStore []Rule

func (s staticStore) Scan() ([]Rule, error) {
	return s, nil
}
