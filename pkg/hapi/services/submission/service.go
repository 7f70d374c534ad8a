// Package submission sequences the admission pipeline: validate the
// protocol, price it against the submitter's occupancy and the
// administrator rules, rewrite its priority class, render it, and hand
// it to the scheduler's own validator.
package submission

import (
	"context"

	"github.com/google/uuid"
	"github.com/hivegate/hivegate/pkg/admission"
	"github.com/hivegate/hivegate/pkg/herr"
	"github.com/hivegate/hivegate/pkg/hlog"
	"github.com/hivegate/hivegate/pkg/protocol"
	"github.com/hivegate/hivegate/pkg/sched"
)

// UsageSource reports a user's currently occupied GPU counts.
// Implemented by usage.Tracker.
type UsageSource interface {
	OccupiedGPU(ctx context.Context, username string) (int64, error)
	OccupiedHighPriorityGPU(ctx context.Context, username string) (int64, error)
}

// Service runs the pipeline. Each submission is one sequential pass;
// the only shared mutable state is the credential cache inside the
// usage tracker.
type Service struct {
	rules     admission.RuleSource
	engine    *admission.Engine
	usage     UsageSource
	validator sched.Validator
	logger    *hlog.Logger

	// defaultVC stands in when the protocol names no virtual cluster.
	defaultVC string

	// strictRules mirrors the usage tracker's strict/lenient policy for
	// the rule store: lenient proceeds with an empty rule set when the
	// store is down.
	strictRules bool
}

// Result is the terminal output of an accepted submission.
type Result struct {
	ID                uuid.UUID
	EffectivePriority string
	Spec              *protocol.Spec
	Raw               []byte
}

// NewService wires the pipeline stages together.
func NewService(rules admission.RuleSource, usage UsageSource, validator sched.Validator,
	logger *hlog.Logger, defaultVC string, strictRules bool) *Service {
	if logger == nil {
		logger = hlog.NewDefault()
	}
	if validator == nil {
		validator = sched.Passthrough{}
	}
	return &Service{
		rules:       rules,
		engine:      admission.NewEngine(logger),
		usage:       usage,
		validator:   validator,
		logger:      logger,
		defaultVC:   defaultVC,
		strictRules: strictRules,
	}
}

// Submit runs the full pipeline over a raw protocol document. On
// success the returned Result carries the scheduler-approved spec and
// its serialized form; on failure the error carries a stable herr code.
func (s *Service) Submit(ctx context.Context, raw []byte, username string) (*Result, error) {
	spec, err := protocol.Parse(raw)
	if err != nil {
		return nil, herr.Newf(herr.CodeInvalidSpecification, "malformed protocol document: %v", err)
	}

	// A document without a scheduler block gets the placeholder priority
	// before the first validation pass, matching what an explicit "test"
	// submission gets.
	if spec.Extras == nil || spec.Extras.HivedScheduler == nil {
		spec.SetPriorityClass(protocol.PriorityTest)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	requestedGPU := spec.RequestedGPU()

	occupied, err := s.usage.OccupiedGPU(ctx, username)
	if err != nil {
		return nil, err
	}
	occupiedHigh, err := s.usage.OccupiedHighPriorityGPU(ctx, username)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.Rules(ctx)
	if err != nil {
		if s.strictRules {
			return nil, err
		}
		s.logger.Error("rule fetch failed, proceeding without rules", "error", err)
		rules = nil
	}

	effective := s.engine.Evaluate(rules, admission.Request{
		Username:             username,
		VirtualCluster:       s.virtualCluster(spec),
		RequestedPriority:    spec.PriorityClass(),
		TotalGPU:             occupied + requestedGPU,
		TotalHighPriorityGPU: occupiedHigh + requestedGPU,
	})
	spec.SetPriorityClass(effective)

	// Second validation pass over the mutated spec. The terminal policy
	// check turns an engine "fail" verdict into ResourceLimitExceeded.
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	spec.Render()

	approved, err := s.validator.Validate(ctx, spec, username)
	if err != nil {
		return nil, err
	}

	serialized, err := approved.Marshal()
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	s.logger.Info("submission admitted",
		"id", id, "username", username, "job", approved.Name,
		"priority", effective, "requested_gpu", requestedGPU,
		"occupied_gpu", occupied, "occupied_high_priority_gpu", occupiedHigh)

	return &Result{
		ID:                id,
		EffectivePriority: effective,
		Spec:              approved,
		Raw:               serialized,
	}, nil
}

func (s *Service) virtualCluster(spec *protocol.Spec) string {
	if vc := spec.VirtualCluster(); vc != "" {
		return vc
	}
	return s.defaultVC
}
