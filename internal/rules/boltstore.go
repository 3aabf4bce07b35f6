package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const rulesBucketName = "rules"

// Store defines the interface for the rule repository
type Store interface {
	// Scan returns all rules in stored order
	Scan() ([]Rule, error)
}

// BoltStore implements the rule repository on a local bbolt database.
// Rules are keyed by ruleId, so stored order is the lexicographic ruleId
// order and evaluation order is stable across scans.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the rule database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening rule database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rulesBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating rules bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Scan returns all rules in stored order
func (b *BoltStore) Scan() ([]Rule, error) {
	rules := make([]Rule, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(rulesBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var rule Rule
			if err := json.Unmarshal(v, &rule); err != nil {
				return fmt.Errorf("unmarshaling rule %s: %w", k, err)
			}
			rules = append(rules, rule)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// SaveRule validates a rule document against the rule schema and stores it
func (b *BoltStore) SaveRule(rule Rule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("marshaling rule: %w", err)
	}
	if err := ValidateRuleDocument(data); err != nil {
		return fmt.Errorf("rule %s: %w", rule.RuleID, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(rulesBucketName))
		return bucket.Put([]byte(rule.RuleID), data)
	})
}

// DeleteRule removes a rule from the repository
func (b *BoltStore) DeleteRule(ruleID string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(rulesBucketName))
		return bucket.Delete([]byte(ruleID))
	})
}

// Close closes the rule database
func (b *BoltStore) Close() error {
	return b.db.Close()
}
