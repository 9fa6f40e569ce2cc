// Package token decodes the claims of a bearer token without verifying its
// signature. The client treats the token as an opaque credential; claims are
// read only to drive local authorization state.
package token

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fastygo/wishgift/domain"
)

const (
	claimSubject  = "sub"
	claimIsAdmin  = "isAdmin"
	claimGroupIDs = "groupIds"
	claimIssuedAt = "iat"
	claimExpires  = "exp"
)

// knownClaims lists every key a token payload may carry. Registered claims the
// API may add later (iss, aud, nbf, jti) are tolerated.
var knownClaims = map[string]struct{}{
	claimSubject:  {},
	claimIsAdmin:  {},
	claimGroupIDs: {},
	claimIssuedAt: {},
	claimExpires:  {},
	"iss":         {},
	"aud":         {},
	"nbf":         {},
	"jti":         {},
}

var parser = jwt.NewParser(jwt.WithJSONNumber())

// Decode extracts the claims of raw. Any structural problem yields a domain
// error with code DECODE; callers must then treat the token as untrustworthy.
func Decode(raw string) (domain.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Claims{}, decodeError("empty token", nil)
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return domain.Claims{}, decodeError("malformed token", err)
	}

	for key := range claims {
		if _, ok := knownClaims[key]; !ok {
			return domain.Claims{}, decodeError(fmt.Sprintf("unknown claim %q", key), nil)
		}
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return domain.Claims{}, decodeError("invalid subject claim", err)
	}
	if subject == "" {
		return domain.Claims{}, decodeError("missing subject claim", nil)
	}

	rawAdmin, ok := claims[claimIsAdmin]
	if !ok {
		return domain.Claims{}, decodeError("missing isAdmin claim", nil)
	}
	isAdmin, ok := rawAdmin.(bool)
	if !ok {
		return domain.Claims{}, decodeError("isAdmin claim is not a boolean", nil)
	}

	issuedAt, err := claims.GetIssuedAt()
	if err != nil {
		return domain.Claims{}, decodeError("invalid iat claim", err)
	}
	if issuedAt == nil {
		return domain.Claims{}, decodeError("missing iat claim", nil)
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil {
		return domain.Claims{}, decodeError("invalid exp claim", err)
	}
	if expiresAt == nil {
		return domain.Claims{}, decodeError("missing exp claim", nil)
	}

	groupIDs, err := groupIDsFrom(claims[claimGroupIDs])
	if err != nil {
		return domain.Claims{}, err
	}

	return domain.Claims{
		Subject:   subject,
		IsAdmin:   isAdmin,
		GroupIDs:  groupIDs,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}

func groupIDsFrom(value interface{}) ([]string, error) {
	if value == nil {
		return []string{}, nil
	}
	items, ok := value.([]interface{})
	if !ok {
		return nil, decodeError("groupIds claim is not an array", nil)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		id, ok := item.(string)
		if !ok || id == "" {
			return nil, decodeError(fmt.Sprintf("groupIds[%d] is not a group id", i), nil)
		}
		out = append(out, id)
	}
	return out, nil
}

func decodeError(message string, err error) *domain.Error {
	return domain.WrapError(domain.ErrCodeDecode, message, err)
}
