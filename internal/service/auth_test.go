package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openfleet/mileage-api/internal/storage"
)

// memUsersRepo holds a single user.
type memUsersRepo struct {
	user *storage.User
}

func (m *memUsersRepo) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	if m.user != nil && m.user.Username == username {
		return m.user, nil
	}
	return nil, nil
}

func (m *memUsersRepo) GetUserByID(_ context.Context, id int32) (*storage.User, error) {
	if m.user != nil && m.user.ID == id {
		return m.user, nil
	}
	return nil, nil
}

// memTokensRepo stores refresh tokens in a map.
type memTokensRepo struct {
	tokens map[string]*storage.RefreshToken
}

func newMemTokensRepo() *memTokensRepo {
	return &memTokensRepo{tokens: make(map[string]*storage.RefreshToken)}
}

func (m *memTokensRepo) StoreRefreshToken(_ context.Context, hash string, userID int32, expiresAt time.Time) error {
	m.tokens[hash] = &storage.RefreshToken{TokenHash: hash, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (m *memTokensRepo) GetRefreshToken(_ context.Context, hash string) (*storage.RefreshToken, error) {
	return m.tokens[hash], nil
}

func (m *memTokensRepo) RevokeRefreshToken(_ context.Context, hash string) error {
	if t, ok := m.tokens[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func testAuthService(t *testing.T) (*AuthService, *storage.User) {
	t.Helper()
	hash, err := HashPassword("open sesame")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &storage.User{
		ID:           1,
		Username:     "dana",
		PasswordHash: hash,
		FullName:     "Dana Cole",
		Role:         "driver",
		Active:       true,
	}
	svc := NewAuthService(&memUsersRepo{user: user}, newMemTokensRepo(), "test-secret", 15*time.Minute, 24*time.Hour)
	return svc, user
}

func TestLogin_Success(t *testing.T) {
	svc, user := testAuthService(t)

	pair, got, err := svc.Login(context.Background(), "dana", "open sesame")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("user ID = %d, want %d", got.ID, user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("token pair has empty tokens")
	}

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.Username != "dana" || claims.Role != "driver" {
		t.Errorf("claims = %+v, want dana/driver", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := testAuthService(t)

	_, _, err := svc.Login(context.Background(), "dana", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := testAuthService(t)

	_, _, err := svc.Login(context.Background(), "nobody", "open sesame")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _ := testAuthService(t)

	pair, _, err := svc.Login(context.Background(), "dana", "open sesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	newPair, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if newPair.RefreshToken == pair.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// Old token is revoked.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _ := testAuthService(t)

	pair, _, err := svc.Login(context.Background(), "dana", "open sesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	svc, _ := testAuthService(t)

	if _, err := svc.ValidateAccessToken("not.a.jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestAuth_MissingSecret(t *testing.T) {
	svc := NewAuthService(&memUsersRepo{}, newMemTokensRepo(), "", time.Minute, time.Hour)

	_, _, err := svc.Login(context.Background(), "dana", "pw")
	if !errors.Is(err, ErrJWTSecretMissing) {
		t.Fatalf("err = %v, want ErrJWTSecretMissing", err)
	}
}
