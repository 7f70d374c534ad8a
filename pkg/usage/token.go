package usage

import (
	"context"
	"sync"
	"time"

	"github.com/hivegate/hivegate/pkg/db/models"
	"github.com/hivegate/hivegate/pkg/herr"
	"github.com/hivegate/hivegate/pkg/kv"
	"github.com/uptrace/bun"
)

const (
	// tokenCacheKey is where replicas share the fetched credential.
	tokenCacheKey = "usage:app_token"

	// tokenCacheTTL bounds how long a rotated credential can keep being
	// served from the cache.
	tokenCacheTTL = 24 * time.Hour
)

// TokenSource yields the bearer credential for the cluster job-listing
// API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenProvider owns the credential lifecycle: look in the shared kv
// cache first, fall back to the durable store, and memoize the result
// for the rest of the process lifetime. It is constructed once at
// startup and injected; there is no ambient global.
type TokenProvider struct {
	db    *bun.DB
	cache kv.Store

	mu    sync.Mutex
	token string
}

// NewTokenProvider returns a TokenProvider reading through cache (may be
// nil) into db.
func NewTokenProvider(db *bun.DB, cache kv.Store) *TokenProvider {
	return &TokenProvider{db: db, cache: cache}
}

// Token returns the credential. Only a successful fetch is memoized, so
// a store outage at startup is retried on the next submission.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" {
		return p.token, nil
	}

	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, tokenCacheKey); err == nil && len(cached) > 0 {
			p.token = string(cached)
			return p.token, nil
		}
	}

	var row models.AppToken
	if err := p.db.NewSelect().
		Model(&row).
		OrderExpr("created_at DESC").
		Limit(1).
		Scan(ctx); err != nil {
		return "", herr.New(herr.CodeUsageUnavailable, err)
	}

	p.token = row.AppToken
	if p.cache != nil {
		// Cache write failures are not fatal; the next replica just hits
		// the database once more.
		_ = p.cache.Set(ctx, tokenCacheKey, []byte(p.token), tokenCacheTTL)
	}
	return p.token, nil
}

// StaticTokenSource returns a TokenSource that always yields token.
// Used in tests and single-tenant deployments.
func StaticTokenSource(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (t staticToken) Token(context.Context) (string, error) {
	return string(t), nil
}
