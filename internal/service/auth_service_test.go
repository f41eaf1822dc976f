package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"crashgate/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const testSigningKey = "test-signing-key"

// mockOperatorRepo is a lightweight in-test mock for repository.Operators.
type mockOperatorRepo struct {
	CreateFn         func(username, hash string) (int, error)
	GetByUsernameFn  func(username string) (*models.Operator, error)
	UpdatePasswordFn func(id int, hash string) error

	createCalls []struct {
		username string
		hash     string
	}
	getCalls    []string
	updateCalls int
}

func (m *mockOperatorRepo) Create(_ context.Context, username, hash string) (int, error) {
	m.createCalls = append(m.createCalls, struct {
		username string
		hash     string
	}{username: username, hash: hash})
	return m.CreateFn(username, hash)
}

func (m *mockOperatorRepo) GetByUsername(_ context.Context, username string) (*models.Operator, error) {
	m.getCalls = append(m.getCalls, username)
	return m.GetByUsernameFn(username)
}

func (m *mockOperatorRepo) UpdatePassword(_ context.Context, id int, hash string) error {
	m.updateCalls++
	return m.UpdatePasswordFn(id, hash)
}

func newTestAuthService(repo *mockOperatorRepo) *AuthService {
	return NewAuthService(repo, AuthConfig{SigningKey: testSigningKey, TokenTTL: time.Hour})
}

func signClaims(t *testing.T, key []byte, claims *Claims) string {
	t.Helper()
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return tk
}

// --- EnsureOperator tests ---

func TestAuthService_EnsureOperator_CreatesMissing(t *testing.T) {
	mock := &mockOperatorRepo{
		GetByUsernameFn: func(string) (*models.Operator, error) { return nil, nil },
		CreateFn:        func(string, string) (int, error) { return 42, nil },
	}
	svc := newTestAuthService(mock)

	id, err := svc.EnsureOperator(context.Background(), "admin", "s3cr3t")
	if err != nil {
		t.Fatalf("EnsureOperator returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
	if len(mock.createCalls) != 1 {
		t.Fatalf("expected 1 Create call, got %d", len(mock.createCalls))
	}
	call := mock.createCalls[0]
	if call.hash == "s3cr3t" {
		t.Errorf("expected hashed password not equal to raw password")
	}
	if err := verifyPassword(call.hash, "s3cr3t"); err != nil {
		t.Errorf("stored hash does not verify with original password: %v", err)
	}
}

func TestAuthService_EnsureOperator_EmptyPasswordForNewOperator(t *testing.T) {
	mock := &mockOperatorRepo{
		GetByUsernameFn: func(string) (*models.Operator, error) { return nil, nil },
		CreateFn: func(string, string) (int, error) {
			t.Fatal("Create should not be called for empty password")
			return 0, nil
		},
	}
	_, err := newTestAuthService(mock).EnsureOperator(context.Background(), "admin", "  ")
	if !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestAuthService_EnsureOperator_KeepsMatchingPassword(t *testing.T) {
	hash, _ := hashPassword("same")
	mock := &mockOperatorRepo{
		GetByUsernameFn: func(string) (*models.Operator, error) {
			return &models.Operator{ID: 3, Username: "admin", PasswordHash: hash}, nil
		},
	}
	id, err := newTestAuthService(mock).EnsureOperator(context.Background(), "admin", "same")
	if err != nil || id != 3 {
		t.Fatalf("expected (3, nil), got (%d, %v)", id, err)
	}
	if mock.updateCalls != 0 {
		t.Fatalf("expected no password update, got %d", mock.updateCalls)
	}
}

func TestAuthService_EnsureOperator_RotatesPassword(t *testing.T) {
	hash, _ := hashPassword("old")
	var stored string
	mock := &mockOperatorRepo{
		GetByUsernameFn: func(string) (*models.Operator, error) {
			return &models.Operator{ID: 3, Username: "admin", PasswordHash: hash}, nil
		},
		UpdatePasswordFn: func(id int, h string) error {
			stored = h
			return nil
		},
	}
	if _, err := newTestAuthService(mock).EnsureOperator(context.Background(), "admin", "new"); err != nil {
		t.Fatalf("EnsureOperator returned error: %v", err)
	}
	if err := verifyPassword(stored, "new"); err != nil {
		t.Fatalf("expected rotated hash to verify: %v", err)
	}
}

// --- GenerateToken tests ---

func TestAuthService_GenerateToken_Success(t *testing.T) {
	hash, err := hashPassword("letmein")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	mock := &mockOperatorRepo{
		GetByUsernameFn: func(username string) (*models.Operator, error) {
			if username != "diana" {
				t.Fatalf("expected username 'diana', got %q", username)
			}
			return &models.Operator{ID: 7, Username: "diana", PasswordHash: hash}, nil
		},
	}
	svc := newTestAuthService(mock)

	token, err := svc.GenerateToken(context.Background(), "diana", "letmein")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	id, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected operator id 7 from token, got %d", id)
	}
}

func TestAuthService_GenerateToken_Errors(t *testing.T) {
	correctHash, _ := hashPassword("correct")

	tests := []struct {
		name    string
		getFn   func(string) (*models.Operator, error)
		wantErr error
	}{
		{
			name:    "not found",
			getFn:   func(string) (*models.Operator, error) { return nil, nil },
			wantErr: ErrUserNotFound,
		},
		{
			name: "invalid password",
			getFn: func(string) (*models.Operator, error) {
				return &models.Operator{ID: 1, Username: "eve", PasswordHash: correctHash}, nil
			},
			wantErr: ErrInvalidPassword,
		},
		{
			name:  "repo error",
			getFn: func(string) (*models.Operator, error) { return nil, errors.New("query failed") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(&mockOperatorRepo{GetByUsernameFn: tt.getFn})
			_, err := svc.GenerateToken(context.Background(), "eve", "wrong")
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// --- ParseToken tests ---

func TestAuthService_ParseToken_Malformed(t *testing.T) {
	svc := newTestAuthService(&mockOperatorRepo{})
	if _, err := svc.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestAuthService_ParseToken_InvalidSignature(t *testing.T) {
	svc := newTestAuthService(&mockOperatorRepo{})
	now := time.Now()
	bad := signClaims(t, []byte("different-key"), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: 5,
	})
	if _, err := svc.ParseToken(bad); err == nil {
		t.Fatalf("expected signature verification error")
	}
}

func TestAuthService_ParseToken_Expired(t *testing.T) {
	svc := newTestAuthService(&mockOperatorRepo{})
	past := time.Now().Add(-2 * time.Hour)
	expired := signClaims(t, []byte(testSigningKey), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Minute)),
		},
		OperatorID: 11,
	})
	if _, err := svc.ParseToken(expired); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestAuthService_ParseToken_UsesTTL(t *testing.T) {
	svc := NewAuthService(&mockOperatorRepo{}, AuthConfig{SigningKey: testSigningKey, TokenTTL: time.Minute})
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.issueToken(9)
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatalf("expected token to expire after the configured ttl")
	}
}

func TestAuthService_ParseToken_UnexpectedAlg(t *testing.T) {
	svc := newTestAuthService(&mockOperatorRepo{})
	now := time.Now()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	tk := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: 12,
	})
	tokenStr, err := tk.SignedString(privateKey)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	if _, err := svc.ParseToken(tokenStr); err == nil {
		t.Fatalf("expected error due to unexpected signing method")
	}
}
