package auth

import (
	"context"
	"testing"

	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"fullname": "Test",
		"email":    "a@b.com",
	})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"user_id":  "550e8400-e29b-41d4-a716-446655440000",
		"fullname": "Test User",
		"email":    "test@example.com",
		"role":     "member",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", u.UserID)
	assert.Equal(t, "Test User", u.Fullname)
	assert.Equal(t, "member", u.Role)
}

func TestLoginUser(t *testing.T) {
	db := testutil.OpenDB(t)
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.User{Fullname: "Ana", Email: "ana@example.com", PasswordHash: hash, Role: "member"}).Error)

	u, err := LoginUser(db, LoginInput{Email: " Ana@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Fullname)

	_, err = LoginUser(db, LoginInput{Email: "ana@example.com", Password: "nope"})
	assert.Equal(t, ErrIncorrectPassword, err)

	_, err = LoginUser(db, LoginInput{Email: "who@example.com", Password: "x"})
	assert.Equal(t, ErrInvalidEmail, err)

	_, err = LoginUser(db, LoginInput{Email: "ana@example.com"})
	assert.Equal(t, ErrEmailPasswordRequired, err)
}

func TestAccounts(t *testing.T) {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 0)

	refs, err := Accounts(context.Background(), db, f.BrandOwner.UserID.String())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, domain.SideBrand, refs[0].Side)
	assert.Equal(t, f.Brand.ID.String(), refs[0].ID)

	refs, err = Accounts(context.Background(), db, f.Stranger.UserID.String())
	require.NoError(t, err)
	assert.Empty(t, refs)
}
