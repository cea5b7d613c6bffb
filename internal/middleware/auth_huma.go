package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/account-guard/internal/contextx"
	"github.com/delordemm1/account-guard/internal/credential"
	apphttpx "github.com/delordemm1/account-guard/internal/httpx"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Authenticate is a router-agnostic Huma middleware that resolves the bearer credential with
// issuer and stores the resulting contextx.Principal in the request context.
// On failure it writes an RFC7807 problem+json response with code ErrUnauthorized.
func Authenticate(issuer credential.Issuer, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		writeUnauthorized := func(detail string) {
			p := &apphttpx.Problem{
				Type:      "urn:problem:auth/err-unauthorized",
				Title:     http.StatusText(http.StatusUnauthorized),
				Status:    http.StatusUnauthorized,
				Detail:    detail,
				Code:      "ErrUnauthorized",
				RequestID: chimw.GetReqID(ctx.Context()),
			}
			ctx.SetHeader("Content-Type", "application/problem+json")
			ctx.SetStatus(p.GetStatus())
			_ = json.NewEncoder(ctx.BodyWriter()).Encode(p)
		}

		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			writeUnauthorized("missing authorization header")
			return
		}

		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			writeUnauthorized("invalid authorization header format")
			return
		}

		claims, err := issuer.Verify(ctx.Context(), token)
		if err != nil {
			if !errors.Is(err, credential.ErrInvalid) && !errors.Is(err, credential.ErrExpired) {
				logger.Error("credential verification failed", "error", err)
			}
			writeUnauthorized("invalid or expired token")
			return
		}

		ctx = huma.WithValue(ctx, contextx.PrincipalKey, contextx.Principal{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		})
		next(ctx)
	}
}
