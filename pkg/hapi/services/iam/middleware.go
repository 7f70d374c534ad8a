package iam

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/hivegate/hivegate/pkg/hlog"
)

func (s *IAMService) Middleware() func(ctx huma.Context, next func(huma.Context)) {
	logger := hlog.NewDefault()

	return func(ctx huma.Context, next func(huma.Context)) {
		r, _ := humachi.Unwrap(ctx)

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token := parts[1]
				if user, err := s.ValidateToken(token); err == nil {
					logger.Debug("authenticated submitter", "username", user.Username)
					ctx = huma.WithValue(ctx, principalKey, user)
				} else {
					logger.Warn("invalid token", "error", err)
				}
			}
		}

		next(ctx)
	}
}
