package stubapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	userIDKey   = "stubapi.userID"
	msgExpired  = "session expired, please sign in again"
	msgNoBearer = "authentication required"
)

// authenticate verifies the bearer token and stores the subject on the request.
func (s *Server) authenticate(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		tokenString := extractToken(ctx)
		if tokenString == "" {
			respondError(ctx, fasthttp.StatusUnauthorized, msgNoBearer)
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			s.logger.Warn("invalid jwt token", zap.Error(err))
			respondError(ctx, fasthttp.StatusUnauthorized, msgExpired)
			return
		}

		userID, err := claims.GetSubject()
		if err != nil || userID == "" {
			respondError(ctx, fasthttp.StatusUnauthorized, msgExpired)
			return
		}

		s.mu.Lock()
		_, known := s.users[userID]
		s.mu.Unlock()
		if !known {
			respondError(ctx, fasthttp.StatusUnauthorized, msgExpired)
			return
		}

		ctx.SetUserValue(userIDKey, userID)
		next(ctx)
	}
}

func (s *Server) logRequests(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		s.logger.Debug("stub request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.ByteString("request_id", ctx.Request.Header.Peek("X-Request-ID")),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func currentUser(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(userIDKey).(string)
	return id
}
