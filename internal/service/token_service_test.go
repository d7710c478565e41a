package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key"
	testIssuer = "agrimarket-auth"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTTokenService_Validate(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)
	userID := uuid.New()

	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"sub":   userID.String(),
		"iss":   testIssuer,
		"roles": []string{"BUYER", "ADMIN"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, []string{"BUYER", "ADMIN"}, claims.Roles)
	assert.True(t, claims.HasRole("ADMIN"))
	assert.False(t, claims.HasRole("FARMER"))
}

func TestJWTTokenService_Validate_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signTestToken(t, "other-secret", jwt.MapClaims{
		"sub": uuid.New().String(),
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.Validate(tokenString)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_WrongIssuer(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.Validate(tokenString)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_Expired(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"iss": testIssuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := svc.Validate(tokenString)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_RejectsNonHMAC(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	// alg=none tokens must never pass
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.New().String(),
		"iss": testIssuer,
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(unsigned)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_MissingSubject(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.Validate(tokenString)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_NonUUIDSubject(t *testing.T) {
	svc := NewJWTTokenService(testSecret, testIssuer)

	tokenString := signTestToken(t, testSecret, jwt.MapClaims{
		"sub": "not-a-uuid",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.Validate(tokenString)
	assert.Error(t, err)
}
