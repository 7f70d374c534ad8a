package admission

import (
	"testing"

	"github.com/hivegate/hivegate/pkg/db/models"
	"github.com/hivegate/hivegate/pkg/protocol"
)

func limit(n int64) *int64 { return &n }

func rule(id int64, mutate func(*models.AdmissionRule)) *models.AdmissionRule {
	r := &models.AdmissionRule{
		RuleID:          id,
		UsernameMatch:   ".*",
		ChangedPriority: protocol.PriorityTest,
	}
	if mutate != nil {
		mutate(r)
	}
	return r
}

func evaluate(t *testing.T, rules []*models.AdmissionRule, req Request) string {
	t.Helper()
	return NewEngine(nil).Evaluate(rules, req)
}

func TestEvaluate_EmptyRulesYieldsSubmissionDefault(t *testing.T) {
	// No explicit priority: the vocabulary default maps back to the
	// submission-level default.
	got := evaluate(t, nil, Request{Username: "alice", TotalGPU: 2})
	if got != protocol.PriorityTest {
		t.Errorf("Evaluate = %q, want %q", got, protocol.PriorityTest)
	}
}

func TestEvaluate_ExplicitPriorityKeptWithoutRules(t *testing.T) {
	got := evaluate(t, nil, Request{Username: "alice", RequestedPriority: protocol.PriorityProd})
	if got != protocol.PriorityProd {
		t.Errorf("Evaluate = %q, want %q", got, protocol.PriorityProd)
	}
}

func TestEvaluate_CommonLimitDemotes(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.CommonGPULimit = limit(8)
			r.ChangedPriority = protocol.PriorityTest
		}),
	}
	// User already holds 8 GPUs, submits 2 more at "default".
	got := evaluate(t, rules, Request{
		Username:          "bob",
		RequestedPriority: protocol.PriorityDefault,
		TotalGPU:          10,
	})
	if got != protocol.PriorityTest {
		t.Errorf("Evaluate = %q, want %q", got, protocol.PriorityTest)
	}
}

func TestEvaluate_LimitNotExceededSkipsRule(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.CommonGPULimit = limit(8)
			r.ChangedPriority = protocol.PriorityFail
		}),
	}
	got := evaluate(t, rules, Request{Username: "bob", RequestedPriority: protocol.PriorityProd, TotalGPU: 8})
	if got != protocol.PriorityProd {
		t.Errorf("limit boundary (8 > 8 is false) should not trigger, got %q", got)
	}
}

func TestEvaluate_HighPriorityLimitCheckedWhenCommonPasses(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.CommonGPULimit = limit(100)
			r.HighPriorityGPULimit = limit(4)
			r.ChangedPriority = protocol.PriorityTest
		}),
	}
	got := evaluate(t, rules, Request{
		Username:             "carol",
		RequestedPriority:    protocol.PriorityProd,
		TotalGPU:             10,
		TotalHighPriorityGPU: 6,
	})
	if got != protocol.PriorityTest {
		t.Errorf("Evaluate = %q, want %q", got, protocol.PriorityTest)
	}
}

func TestEvaluate_UnconditionalRuleAlwaysApplies(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.ChangedPriority = protocol.PriorityTest
		}),
	}
	got := evaluate(t, rules, Request{Username: "dave", RequestedPriority: protocol.PriorityProd})
	if got != protocol.PriorityTest {
		t.Errorf("unconditional rule must apply, got %q", got)
	}
}

func TestEvaluate_RetainHaltsWithoutChange(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(2, func(r *models.AdmissionRule) {
			r.ChangedPriority = PriorityRetain
		}),
		rule(1, func(r *models.AdmissionRule) {
			r.ChangedPriority = protocol.PriorityFail
		}),
	}
	got := evaluate(t, rules, Request{Username: "erin", RequestedPriority: protocol.PriorityProd})
	if got != protocol.PriorityProd {
		t.Errorf("retain must stop evaluation with keyword unchanged, got %q", got)
	}
}

func TestEvaluate_FailHaltsImmediately(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(2, func(r *models.AdmissionRule) {
			r.ChangedPriority = protocol.PriorityFail
		}),
		rule(1, func(r *models.AdmissionRule) {
			r.ChangedPriority = protocol.PriorityProd
		}),
	}
	got := evaluate(t, rules, Request{Username: "frank"})
	if got != protocol.PriorityFail {
		t.Errorf("Evaluate = %q, want %q", got, protocol.PriorityFail)
	}
}

func TestEvaluate_HighestRuleIDFirst(t *testing.T) {
	rules := []*models.AdmissionRule{
		// Deliberately out of order: evaluation must sort by rule_id
		// descending, so rule 5 wins.
		rule(1, func(r *models.AdmissionRule) { r.ChangedPriority = protocol.PriorityProd }),
		rule(5, func(r *models.AdmissionRule) { r.ChangedPriority = protocol.PriorityFail }),
	}
	got := evaluate(t, rules, Request{Username: "grace"})
	if got != protocol.PriorityFail {
		t.Errorf("Evaluate = %q, want rule 5 to win with %q", got, protocol.PriorityFail)
	}
}

func TestEvaluate_KeywordFeedsLaterPriorityPredicates(t *testing.T) {
	rules := []*models.AdmissionRule{
		// Rule 2 demotes prod to default; rule 1 only matches default
		// and then demotes to test. The chain must apply both.
		rule(2, func(r *models.AdmissionRule) {
			r.CurrentPriorities = "prod"
			r.ChangedPriority = protocol.PriorityDefault
		}),
		rule(1, func(r *models.AdmissionRule) {
			r.CurrentPriorities = "default"
			r.ChangedPriority = protocol.PriorityTest
		}),
	}
	got := evaluate(t, rules, Request{Username: "heidi", RequestedPriority: protocol.PriorityProd})
	if got != protocol.PriorityTest {
		t.Errorf("Evaluate = %q, want chained demotion to %q", got, protocol.PriorityTest)
	}
}

func TestEvaluate_UsernamePatternFilters(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.UsernameMatch = "^intern-"
			r.ChangedPriority = protocol.PriorityTest
		}),
	}

	if got := evaluate(t, rules, Request{Username: "intern-ivan", RequestedPriority: protocol.PriorityProd}); got != protocol.PriorityTest {
		t.Errorf("matching username should demote, got %q", got)
	}
	if got := evaluate(t, rules, Request{Username: "staff-judy", RequestedPriority: protocol.PriorityProd}); got != protocol.PriorityProd {
		t.Errorf("non-matching username should keep priority, got %q", got)
	}
}

func TestEvaluate_VirtualClusterSet(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.VirtualClusters = "research, nlp"
			r.ChangedPriority = protocol.PriorityTest
		}),
	}

	if got := evaluate(t, rules, Request{Username: "kim", VirtualCluster: "nlp", RequestedPriority: protocol.PriorityProd}); got != protocol.PriorityTest {
		t.Errorf("VC in set should demote, got %q", got)
	}
	if got := evaluate(t, rules, Request{Username: "kim", VirtualCluster: "vision", RequestedPriority: protocol.PriorityProd}); got != protocol.PriorityProd {
		t.Errorf("VC outside set should keep priority, got %q", got)
	}
}

func TestEvaluate_InvalidPatternSkipsRule(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(2, func(r *models.AdmissionRule) {
			r.UsernameMatch = "["
			r.ChangedPriority = protocol.PriorityFail
		}),
		rule(1, func(r *models.AdmissionRule) {
			r.ChangedPriority = protocol.PriorityTest
		}),
	}
	got := evaluate(t, rules, Request{Username: "leo", RequestedPriority: protocol.PriorityProd})
	if got != protocol.PriorityTest {
		t.Errorf("invalid pattern must be skipped, got %q", got)
	}
}

func TestEvaluate_NonOverlappingRulesOrderInsensitive(t *testing.T) {
	a := rule(1, func(r *models.AdmissionRule) {
		r.UsernameMatch = "^a$"
		r.ChangedPriority = protocol.PriorityTest
	})
	b := rule(2, func(r *models.AdmissionRule) {
		r.UsernameMatch = "^b$"
		r.ChangedPriority = protocol.PriorityFail
	})

	req := Request{Username: "a", RequestedPriority: protocol.PriorityProd}
	first := evaluate(t, []*models.AdmissionRule{a, b}, req)

	// Swap identifiers: the rules never match the same request, so the
	// outcome must not change.
	a.RuleID, b.RuleID = b.RuleID, a.RuleID
	second := evaluate(t, []*models.AdmissionRule{a, b}, req)

	if first != second {
		t.Errorf("re-ordering non-overlapping rules changed result: %q -> %q", first, second)
	}
}

func TestEvaluate_DefaultMapsToTestOnReturn(t *testing.T) {
	rules := []*models.AdmissionRule{
		rule(1, func(r *models.AdmissionRule) {
			r.ChangedPriority = protocol.PriorityDefault
		}),
	}
	got := evaluate(t, rules, Request{Username: "mallory", RequestedPriority: protocol.PriorityProd})
	if got != protocol.PriorityTest {
		t.Errorf("vocabulary default must map to %q, got %q", protocol.PriorityTest, got)
	}
}
