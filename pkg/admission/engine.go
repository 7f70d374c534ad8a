// Package admission evaluates administrator rules against a submission
// to decide the scheduling priority class it is allowed to run at.
package admission

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hivegate/hivegate/pkg/db/models"
	"github.com/hivegate/hivegate/pkg/hlog"
	"github.com/hivegate/hivegate/pkg/protocol"
)

// PriorityRetain is the rule-side sentinel meaning "stop evaluating,
// keep the current priority". It never appears in a protocol document.
const PriorityRetain = "retain"

// Request is the submission-side input to rule evaluation. TotalGPU and
// TotalHighPriorityGPU already include the GPUs this submission asks
// for, on top of the user's occupied counts.
type Request struct {
	Username             string
	VirtualCluster       string
	RequestedPriority    string
	TotalGPU             int64
	TotalHighPriorityGPU int64
}

// Engine evaluates ordered admission rules. Rules are treated as trusted
// administrator input: a pattern that fails to compile is skipped and
// logged, not surfaced to the submitter.
type Engine struct {
	logger *hlog.Logger
}

// NewEngine returns an Engine logging through the given logger.
func NewEngine(logger *hlog.Logger) *Engine {
	if logger == nil {
		logger = hlog.NewDefault()
	}
	return &Engine{logger: logger}
}

// Evaluate runs the ordered rule match and returns the effective
// priority class. Rules are evaluated highest RuleID first; only the
// first matching, limit-triggering rule with a retain/fail action halts
// evaluation, while a plain priority change feeds into the matching of
// later rules. The vocabulary default maps to the submission-level
// default ("test") on return.
//
// The matching order is load-bearing: a layered-override policy relies
// on higher-numbered rules shadowing lower-numbered ones.
func (e *Engine) Evaluate(rules []*models.AdmissionRule, req Request) string {
	ordered := make([]*models.AdmissionRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RuleID > ordered[j].RuleID
	})

	keyword := req.RequestedPriority
	if keyword == "" {
		keyword = protocol.PriorityDefault
	}

	for _, rule := range ordered {
		matcher, err := regexp.Compile(rule.UsernameMatch)
		if err != nil {
			e.logger.Warn("skipping rule with invalid username pattern",
				"rule_id", rule.RuleID, "pattern", rule.UsernameMatch, "error", err)
			continue
		}
		if !matcher.MatchString(req.Username) {
			continue
		}
		if !memberOf(rule.VirtualClusters, req.VirtualCluster) {
			continue
		}
		if !memberOf(rule.CurrentPriorities, keyword) {
			continue
		}

		triggered := false
		switch {
		case rule.CommonGPULimit != nil && req.TotalGPU > *rule.CommonGPULimit:
			triggered = true
		case rule.HighPriorityGPULimit != nil && req.TotalHighPriorityGPU > *rule.HighPriorityGPULimit:
			triggered = true
		case rule.CommonGPULimit == nil && rule.HighPriorityGPULimit == nil:
			// Unconditional rule: applies whenever the predicates match.
			triggered = true
		}
		if !triggered {
			continue
		}

		if rule.ChangedPriority == PriorityRetain {
			break
		}
		keyword = rule.ChangedPriority
		e.logger.Info("admission rule applied",
			"rule_id", rule.RuleID, "username", req.Username, "priority", keyword)
		if keyword == protocol.PriorityFail {
			break
		}
	}

	if keyword == protocol.PriorityDefault {
		return protocol.PriorityTest
	}
	return keyword
}

// memberOf reports whether value is in the comma-separated set. An
// empty set matches anything.
func memberOf(set, value string) bool {
	if strings.TrimSpace(set) == "" {
		return true
	}
	for _, member := range strings.Split(set, ",") {
		if strings.TrimSpace(member) == value {
			return true
		}
	}
	return false
}
