package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/verifiq/invoice-verifier/internal/rules"
)

// ruleload seeds the rule database from a JSON file holding an array of
// rule documents. Every rule is validated and compiled before anything is
// written, so a bad file leaves the database untouched.
func main() {
	fs := ff.NewFlagSet("ruleload")
	var (
		rulesDBPath = fs.StringLong("rules-db", "invoice-rules.db", "Rule database file path")
		rulesFile   = fs.StringLong("file", "", "JSON file with an array of rule documents")
		replace     = fs.BoolLong("replace", "Delete existing rules before loading")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_VERIFIER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *rulesFile == "" {
		slog.Error("A rules file is required. Set --file")
		os.Exit(1)
	}

	data, err := os.ReadFile(*rulesFile)
	if err != nil {
		slog.Error("Failed to read rules file", "error", err)
		os.Exit(1)
	}

	var loaded []rules.Rule
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Error("Failed to parse rules file", "error", err)
		os.Exit(1)
	}

	// Compile the whole set up front so invalid checks are rejected before
	// any write happens
	if _, err := rules.NewSet(loaded, rules.NewRegistry()); err != nil {
		slog.Error("Rules failed validation", "error", err)
		os.Exit(1)
	}

	store, err := rules.NewBoltStore(*rulesDBPath)
	if err != nil {
		slog.Error("Failed to open rule database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *replace {
		existing, err := store.Scan()
		if err != nil {
			slog.Error("Failed to scan existing rules", "error", err)
			os.Exit(1)
		}
		for _, rule := range existing {
			if err := store.DeleteRule(rule.RuleID); err != nil {
				slog.Error("Failed to delete rule", "ruleId", rule.RuleID, "error", err)
				os.Exit(1)
			}
		}
		slog.Info("Cleared existing rules", "count", len(existing))
	}

	for _, rule := range loaded {
		if err := store.SaveRule(rule); err != nil {
			slog.Error("Failed to save rule", "ruleId", rule.RuleID, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Rules loaded", "count", len(loaded), "db", *rulesDBPath)
}
