package admission

import (
	"context"

	"github.com/hivegate/hivegate/pkg/db/models"
	"github.com/hivegate/hivegate/pkg/herr"
	"github.com/uptrace/bun"
)

// RuleSource yields the current rule set. Fetched fresh per submission,
// so administrative changes take effect on the next submission without
// any cache invalidation.
type RuleSource interface {
	Rules(ctx context.Context) ([]*models.AdmissionRule, error)
}

// Store reads admission rules from Postgres.
type Store struct {
	db *bun.DB
}

// NewStore returns a Store over the given database handle.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Rules returns all rules ordered by rule_id descending, the order the
// engine evaluates them in.
func (s *Store) Rules(ctx context.Context) ([]*models.AdmissionRule, error) {
	var rules []*models.AdmissionRule
	if err := s.db.NewSelect().
		Model(&rules).
		OrderExpr("rule_id DESC").
		Scan(ctx); err != nil {
		return nil, herr.New(herr.CodeRulesUnavailable, err)
	}
	return rules, nil
}

var _ RuleSource = (*Store)(nil)
