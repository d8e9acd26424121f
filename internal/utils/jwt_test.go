package utils

import (
	"testing"
	"time"

	"civicconnect/internal/config"
	"civicconnect/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testJWTManager(ttl time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{Secret: "test-secret", Issuer: "civicconnect", AccessTTL: ttl})
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := testJWTManager(15 * time.Minute)
	u := &models.User{ID: primitive.NewObjectID(), UserName: "Officer Rao", Role: models.RoleAuthority, Department: "Water"}

	token, err := m.GenerateUserJWT(u)
	require.NoError(t, err)

	claims, err := m.ValidateUserJWT(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleAuthority, claims.Role)

	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: u.ID, Name: "Officer Rao", Role: models.RoleAuthority, Department: "Water"}, actor)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := testJWTManager(15 * time.Minute)
	u := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCitizen}

	expired, err := testJWTManager(-time.Minute).GenerateUserJWT(u)
	require.NoError(t, err)

	otherSecret, err := NewJWTManager(config.JWTConfig{Secret: "other", Issuer: "civicconnect", AccessTTL: time.Minute}).GenerateUserJWT(u)
	require.NoError(t, err)

	otherIssuer, err := NewJWTManager(config.JWTConfig{Secret: "test-secret", Issuer: "someone-else", AccessTTL: time.Minute}).GenerateUserJWT(u)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{UserID: u.ID.Hex(), Role: "Authority"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"expired":      expired,
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.ValidateUserJWT(token)
			assert.Error(t, err)
		})
	}
}

func TestUserClaims_ActorRejectsBadID(t *testing.T) {
	_, err := (&UserClaims{UserID: "nope", Role: models.RoleCitizen}).Actor()
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword("s3cret!", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
