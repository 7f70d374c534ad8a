package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AdmissionRule is one administrator-authored admission rule. Rules are
// evaluated highest RuleID first; the first rule whose predicates match
// and whose limit triggers decides the effective priority class.
//
// UsernameMatch is a regular expression over the submitter identity.
// VirtualClusters and CurrentPriorities are comma-separated membership
// sets; empty means "match any". A nil GPU limit means the corresponding
// check is absent, and a rule with both limits nil applies
// unconditionally once its predicates match.
type AdmissionRule struct {
	bun.BaseModel `bun:"table:admission.rules,alias:r"`

	RuleID               int64  `bun:"rule_id,pk,autoincrement"`
	UsernameMatch        string `bun:"username_match,notnull"`
	VirtualClusters      string `bun:"virtual_clusters,nullzero"`
	CurrentPriorities    string `bun:"current_priorities,nullzero"`
	CommonGPULimit       *int64 `bun:"common_gpu_limit"`
	HighPriorityGPULimit *int64 `bun:"high_priority_gpu_limit"`
	ChangedPriority      string `bun:"changed_priority,notnull"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// AppToken holds the bearer credential the gateway presents to the
// cluster's job-listing API. The table is expected to contain at least
// one row; the newest one wins.
type AppToken struct {
	bun.BaseModel `bun:"table:admission.tokens,alias:t"`

	ID       int64  `bun:",pk,autoincrement"`
	AppToken string `bun:"app_token,notnull"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
