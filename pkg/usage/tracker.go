// Package usage reads a user's currently occupied GPU counts from the
// cluster's job-listing API.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hivegate/hivegate/pkg/herr"
	"github.com/hivegate/hivegate/pkg/hlog"
	"github.com/sethgrid/pester"
)

const defaultHTTPTries = 4

// Client is the subset of an HTTP client the tracker needs; satisfied by
// *pester.Client and *http.Client alike.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// MakePesterClient builds the retrying HTTP client used against the
// job-listing API.
func MakePesterClient(logger *hlog.Logger) *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = defaultHTTPTries
	client.LogHook = func(e pester.ErrEntry) {
		logger.Warn("retrying usage request", "verb", e.Verb, "url", e.URL, "attempt", e.Attempt, "error", e.Err)
	}
	return client
}

// Tracker queries occupied and high-priority-occupied GPU counts for a
// submitting identity.
//
// Strict controls the failure policy. Lenient (the default) treats a
// failed lookup as zero usage and logs it, preferring availability over
// enforcement during an outage. Strict surfaces the error so the
// submission is rejected instead of under-enforcing quota.
type Tracker struct {
	baseURL string
	client  Client
	tokens  TokenSource
	logger  *hlog.Logger
	strict  bool
}

// NewTracker builds a Tracker against baseURL (e.g.
// "http://master:9186"). A nil client falls back to a retrying pester
// client.
func NewTracker(baseURL string, client Client, tokens TokenSource, logger *hlog.Logger, strict bool) *Tracker {
	if logger == nil {
		logger = hlog.NewDefault()
	}
	if client == nil {
		client = MakePesterClient(logger)
	}
	return &Tracker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		tokens:  tokens,
		logger:  logger,
		strict:  strict,
	}
}

// jobSummary is the slice of the job record the tracker cares about.
type jobSummary struct {
	TotalGpuNumber int64 `json:"totalGpuNumber"`
}

// OccupiedGPU sums the GPUs of the user's waiting and running jobs.
func (t *Tracker) OccupiedGPU(ctx context.Context, username string) (int64, error) {
	return t.occupied(ctx, username, false)
}

// OccupiedHighPriorityGPU sums the GPUs of the user's waiting and
// running production-priority jobs.
func (t *Tracker) OccupiedHighPriorityGPU(ctx context.Context, username string) (int64, error) {
	return t.occupied(ctx, username, true)
}

func (t *Tracker) occupied(ctx context.Context, username string, highPriority bool) (int64, error) {
	total, err := t.fetch(ctx, username, highPriority)
	if err != nil {
		if t.strict {
			return 0, herr.New(herr.CodeUsageUnavailable, err)
		}
		// Lenient policy: assume zero usage and let the submission
		// through rather than failing it during an outage.
		t.logger.Error("usage lookup failed, assuming zero usage",
			"username", username, "high_priority", highPriority, "error", err)
		return 0, nil
	}
	return total, nil
}

func (t *Tracker) fetch(ctx context.Context, username string, highPriority bool) (int64, error) {
	token, err := t.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	query := url.Values{}
	query.Set("username", username)
	query.Set("state", "WAITING,RUNNING")
	if highPriority {
		query.Set("jobPriority", "prod")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v2/jobs?%s", t.baseURL, query.Encode()), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("job-listing API returned %s", resp.Status)
	}

	var jobs []jobSummary
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return 0, fmt.Errorf("decoding job list: %w", err)
	}

	var total int64
	for _, job := range jobs {
		total += job.TotalGpuNumber
	}
	return total, nil
}
