package services

import (
	"github.com/hivegate/hivegate/pkg/admission"
	"github.com/hivegate/hivegate/pkg/hapi/config"
	"github.com/hivegate/hivegate/pkg/hapi/services/iam"
	"github.com/hivegate/hivegate/pkg/hapi/services/submission"
	"github.com/hivegate/hivegate/pkg/hlog"
	"github.com/hivegate/hivegate/pkg/kv"
	"github.com/hivegate/hivegate/pkg/sched"
	"github.com/hivegate/hivegate/pkg/usage"
	"github.com/uptrace/bun"
)

type Services struct {
	IAM        *iam.IAMService
	Submission *submission.Service
}

func NewServices(cfg *config.EnvConfig, db *bun.DB, kvStore kv.Store, validator sched.Validator, logger *hlog.Logger) *Services {
	if logger == nil {
		logger = hlog.NewDefault()
	}

	tokens := usage.NewTokenProvider(db, kvStore)
	tracker := usage.NewTracker(cfg.UsageServiceURL, nil, tokens, logger, cfg.StrictQuota)
	ruleStore := admission.NewStore(db)

	return &Services{
		IAM: iam.NewIAMService([]byte(cfg.AuthSecret)),
		Submission: submission.NewService(ruleStore, tracker, validator,
			logger, cfg.DefaultVirtualCluster, cfg.StrictQuota),
	}
}
