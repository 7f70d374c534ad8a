// Package sched talks to the cluster scheduler's own admission surface.
// The gateway validates and prices a submission; the scheduler performs
// its own secondary validation (resource shapes, cell layout) and may
// transform the protocol further or reject it outright.
package sched

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hivegate/hivegate/pkg/herr"
	"github.com/hivegate/hivegate/pkg/protocol"
)

// Validator is the terminal stage of the submission pipeline. The
// returned spec may differ from the input when the scheduler rewrites
// it.
type Validator interface {
	Validate(ctx context.Context, spec *protocol.Spec, username string) (*protocol.Spec, error)
}

// Passthrough accepts every spec unchanged. Used when the deployment
// runs without a hived scheduler.
type Passthrough struct{}

func (Passthrough) Validate(_ context.Context, spec *protocol.Spec, _ string) (*protocol.Spec, error) {
	return spec, nil
}

// Client is the subset of an HTTP client the validator needs.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPValidator posts the serialized protocol to the scheduler's
// validation endpoint and parses the (possibly transformed) document it
// returns.
type HTTPValidator struct {
	endpoint string
	client   Client
}

// NewHTTPValidator builds a validator against the scheduler endpoint,
// e.g. "http://hived:30096/v2/validate".
func NewHTTPValidator(endpoint string, client Client) *HTTPValidator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPValidator{endpoint: endpoint, client: client}
}

func (v *HTTPValidator) Validate(ctx context.Context, spec *protocol.Spec, username string) (*protocol.Spec, error) {
	body, err := spec.Marshal()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/yaml")
	req.Header.Set("X-Submitter", username)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, herr.New(herr.CodeSchedulerRejected, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, herr.New(herr.CodeSchedulerRejected, err)
	}
	if resp.StatusCode != http.StatusOK {
		// Scheduler rejections pass through to the caller unchanged.
		return nil, herr.Newf(herr.CodeSchedulerRejected, "scheduler rejected submission: %s: %s",
			resp.Status, bytes.TrimSpace(payload))
	}

	transformed, err := protocol.Parse(payload)
	if err != nil {
		return nil, herr.Newf(herr.CodeSchedulerRejected, "scheduler returned a malformed protocol: %v", err)
	}
	if err := transformed.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler-transformed protocol failed validation: %w", err)
	}
	return transformed, nil
}

var (
	_ Validator = Passthrough{}
	_ Validator = (*HTTPValidator)(nil)
)
