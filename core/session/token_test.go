package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomoweb/core/user"
	testutil "github.com/trezcool/masomoweb/tests"
)

// rawToken builds an unsigned token around a literal JSON payload.
func rawToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + ".c2lnbmF0dXJl"
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		wantErr bool
		want    Claims
	}{
		{name: "empty", token: "   ", wantErr: true},
		{name: "not a jwt", token: "not-a-token", wantErr: true},
		{name: "two segments", token: "abc.def", wantErr: true},
		{name: "payload not base64", token: "eyJhbGciOiJIUzI1NiJ9.@@@.sig", wantErr: true},
		{name: "payload not json", token: rawToken(`not json`), wantErr: true},
		{name: "exp of the wrong type", token: rawToken(`{"exp": true}`), wantErr: true},
		{name: "exp not a number", token: rawToken(`{"exp": "soon"}`), wantErr: true},
		{name: "sub of the wrong type", token: rawToken(`{"sub": {"id": 1}}`), wantErr: true},
		{
			name:  "integer exp",
			token: rawToken(`{"sub": "42", "exp": 1792411200}`),
			want:  Claims{Subject: "42", ExpiresAt: exp},
		},
		{
			name:  "float exp",
			token: rawToken(`{"sub": 42, "exp": 1792411200.5}`),
			want:  Claims{Subject: "42", ExpiresAt: exp.Add(500 * time.Millisecond)},
		},
		{
			name:  "string exp",
			token: rawToken(`{"exp": "1792411200"}`),
			want:  Claims{ExpiresAt: exp},
		},
		{
			name:  "far future exp",
			token: rawToken(`{"sub": "1", "exp": 1e19}`),
			want:  Claims{Subject: "1", ExpiresAt: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)},
		},
		{
			name:  "negative exp",
			token: rawToken(`{"exp": -1e19}`),
			want:  Claims{ExpiresAt: time.Unix(0, 0)},
		},
		{
			name:  "no exp",
			token: rawToken(`{"sub": "42", "username": "john"}`),
			want:  Claims{Subject: "42", Username: "john"},
		},
		{
			name: "full claims",
			token: rawToken(`{"sub": "7", "exp": 1792411200, "iat": 1792407600, "oriat": 1792407600,
				"username": "jane", "email": "jane@masomo.test", "roles": ["teacher:", 3],
				"is_teacher": true}`),
			want: Claims{
				Subject:      "7",
				ExpiresAt:    exp,
				IssuedAt:     exp.Add(-time.Hour),
				OrigIssuedAt: exp.Add(-time.Hour),
				Username:     "jane",
				Email:        "jane@masomo.test",
				Roles:        []string{user.RoleTeacher},
				IsTeacher:    true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClaims(tt.token)
			if tt.wantErr {
				assert.Equal(t, ErrMalformedToken, errors.Cause(err))
				return
			}
			if assert.NoError(t, err) {
				assert.True(t, tt.want.ExpiresAt.Equal(got.ExpiresAt), "ExpiresAt = %v; want %v", got.ExpiresAt, tt.want.ExpiresAt)
				assert.True(t, tt.want.IssuedAt.Equal(got.IssuedAt))
				assert.True(t, tt.want.OrigIssuedAt.Equal(got.OrigIssuedAt))
				assert.Equal(t, tt.want.Subject, got.Subject)
				assert.Equal(t, tt.want.Username, got.Username)
				assert.Equal(t, tt.want.Email, got.Email)
				assert.Equal(t, tt.want.Roles, got.Roles)
				assert.Equal(t, tt.want.IsTeacher, got.IsTeacher)
				assert.Equal(t, tt.want.IsAdmin, got.IsAdmin)
				assert.Equal(t, tt.want.IsStudent, got.IsStudent)
			}
		})
	}
}

func TestDecodeClaims_signedToken(t *testing.T) {
	exp := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	token := testutil.TokenFor(t, "12", exp, user.RoleAdminOwner)

	claims, err := DecodeClaims(token)
	assert.NoError(t, err)
	assert.True(t, exp.Equal(claims.ExpiresAt))

	prof := claims.Profile()
	assert.Equal(t, "12", prof.ID)
	assert.Equal(t, "user12", prof.Username)
	assert.True(t, prof.IsAdmin)
	assert.True(t, prof.HasAnyRole(user.RoleAdmin))

	// any signature is accepted: tokens are decoded, not verified
	tampered, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "12"}).SignedString([]byte("other-key"))
	assert.NoError(t, err)
	_, err = DecodeClaims(tampered)
	assert.NoError(t, err)
}

func TestDecodeClaims_farFutureNotExpired(t *testing.T) {
	claims, err := DecodeClaims(rawToken(`{"sub": "1", "exp": 1e19}`))
	assert.NoError(t, err)
	assert.False(t, claims.Expired(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)))
}

func TestDecodeExpiry(t *testing.T) {
	exp, err := DecodeExpiry(rawToken(`{"exp": 1792411200}`))
	assert.NoError(t, err)
	assert.Equal(t, int64(1792411200), exp.Unix())

	exp, err = DecodeExpiry(rawToken(`{}`))
	assert.NoError(t, err)
	assert.True(t, exp.IsZero())

	_, err = DecodeExpiry("garbage")
	assert.Error(t, err)
}

func TestClaims_Expired(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{name: "no expiry", want: false},
		{name: "past", exp: now.Add(-time.Second), want: true},
		{name: "future", exp: now.Add(10 * time.Minute), want: false},
		{name: "exactly now", exp: now, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Claims{ExpiresAt: tt.exp}.Expired(now))
		})
	}
}
