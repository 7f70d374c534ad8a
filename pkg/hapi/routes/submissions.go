package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hivegate/hivegate/pkg/hapi/schemas"
	"github.com/hivegate/hivegate/pkg/hapi/services"
	"github.com/hivegate/hivegate/pkg/herr"
)

// SubmitInput carries the raw protocol document. The body is YAML, not
// JSON; validation happens in the pipeline, not in the transport layer.
type SubmitInput struct {
	RawBody []byte `contentType:"text/yaml" doc:"Job protocol document (YAML)"`
}

// SubmitOutput is the response for an admitted submission.
type SubmitOutput struct {
	Body schemas.SubmissionResponse
}

// RegisterSubmissions registers the submission route.
func RegisterSubmissions(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-job",
		Method:      http.MethodPost,
		Path:        "/api/v2/jobs",
		Summary:     "Submit a job",
		Description: "Validate a job protocol, decide its effective priority class and forward it to the scheduler",
		Tags:        []string{"Jobs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, func(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
		user, ok := svcs.IAM.Principal(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("a valid bearer token is required")
		}

		result, err := svcs.Submission.Submit(ctx, input.RawBody, user.Username)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := &SubmitOutput{}
		resp.Body = schemas.SubmissionResponse{
			ID:                result.ID.String(),
			Name:              result.Spec.Name,
			EffectivePriority: result.EffectivePriority,
			Protocol:          string(result.Raw),
		}
		return resp, nil
	})
}

// toHumaError maps pipeline error codes onto transport errors. Scheduler
// rejections and validation failures are the submitter's to fix;
// unavailable collaborators are ours.
func toHumaError(err error) error {
	switch herr.CodeOf(err) {
	case herr.CodeInvalidSpecification,
		herr.CodeDuplicatePrereq,
		herr.CodeDuplicateDeployment,
		herr.CodeMissingReference,
		herr.CodeResourceLimit,
		herr.CodeSchedulerRejected:
		return huma.Error400BadRequest(err.Error())
	case herr.CodeUnauthorized:
		return huma.Error401Unauthorized(err.Error())
	case herr.CodeUsageUnavailable, herr.CodeRulesUnavailable:
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
