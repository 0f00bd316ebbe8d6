package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core/user"
)

var (
	ErrMalformedToken = errors.New("malformed token")

	// the signing key stays with the API: tokens are only decoded here, never verified.
	parser = &jwt.Parser{UseJSONNumber: true}
)

// NumericDate claims are clamped to [epoch, 9999-12-31T23:59:59Z].
const maxUnixSeconds = 253402300799

// Claims represents the authorization claims the Masomo API puts in its tokens.
type Claims struct {
	Subject      string
	ExpiresAt    time.Time // zero when the token carries no expiry
	IssuedAt     time.Time
	OrigIssuedAt time.Time
	Username     string
	Email        string
	Roles        []string
	IsStudent    bool
	IsTeacher    bool
	IsAdmin      bool
}

// Expired reports whether the embedded expiry is before `now`.
// A token without expiry never expires on its own.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

func (c Claims) Profile() user.Profile {
	return user.Profile{
		ID:        c.Subject,
		Username:  c.Username,
		Email:     c.Email,
		Roles:     c.Roles,
		IsAdmin:   c.IsAdmin,
		IsTeacher: c.IsTeacher,
		IsStudent: c.IsStudent,
	}
}

// DecodeClaims decodes the payload of `token`.
// Any decoding failure is reported as ErrMalformedToken.
func DecodeClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMalformedToken
	}

	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, errors.Wrapf(ErrMalformedToken, "decoding: %v", err)
	}

	var (
		claims Claims
		err    error
	)
	if claims.ExpiresAt, err = numericDate(mc["exp"]); err != nil {
		return Claims{}, errors.Wrap(err, "exp")
	}
	if claims.IssuedAt, err = numericDate(mc["iat"]); err != nil {
		return Claims{}, errors.Wrap(err, "iat")
	}
	if claims.OrigIssuedAt, err = numericDate(mc["oriat"]); err != nil {
		return Claims{}, errors.Wrap(err, "oriat")
	}
	if claims.Subject, err = stringClaim(mc["sub"]); err != nil {
		return Claims{}, errors.Wrap(err, "sub")
	}
	claims.Username, _ = mc["username"].(string)
	claims.Email, _ = mc["email"].(string)
	claims.IsStudent, _ = mc["is_student"].(bool)
	claims.IsTeacher, _ = mc["is_teacher"].(bool)
	claims.IsAdmin, _ = mc["is_admin"].(bool)
	if roles, ok := mc["roles"].([]interface{}); ok {
		for _, r := range roles {
			if role, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, role)
			}
		}
	}
	return claims, nil
}

// DecodeExpiry returns the expiry embedded in `token` (zero if it has none).
func DecodeExpiry(token string) (time.Time, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}

// numericDate reads a NumericDate claim: seconds since epoch, integer or not.
func numericDate(v interface{}) (time.Time, error) {
	var secs float64
	switch n := v.(type) {
	case nil:
		return time.Time{}, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, ErrMalformedToken
		}
		secs = f
	case float64:
		secs = n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return time.Time{}, ErrMalformedToken
		}
		secs = f
	default:
		return time.Time{}, ErrMalformedToken
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, ErrMalformedToken
	}
	secs = math.Max(0, math.Min(secs, maxUnixSeconds))
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}

func stringClaim(v interface{}) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	}
	return "", ErrMalformedToken
}
