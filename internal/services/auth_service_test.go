package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
	"venuepermits/internal/repository/memory"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(memory.NewStore().Users(), "test-secret", 60, quietLogger())
}

func TestSignupDefaultsToOrganizer(t *testing.T) {
	s := newAuth(t)
	u, err := s.Signup(context.Background(), models.SignupRequest{UserName: "alice", Email: "Alice@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Role != models.RoleOrganizer {
		t.Fatalf("expected ORGANIZER got %s", u.Role)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email got %s", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret1" {
		t.Fatalf("password was not hashed")
	}
}

func TestSignupRejectsPrivilegedRoles(t *testing.T) {
	s := newAuth(t)
	for _, role := range []models.Role{models.RoleVenueManager, models.RoleAuthority} {
		_, err := s.Signup(context.Background(), models.SignupRequest{UserName: "bob", Email: "bob@example.com", Password: "secret1", Role: role})
		expectCode(t, err, apperrors.CodeForbidden)
	}
}

func TestSignupDuplicateConflicts(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()
	req := models.SignupRequest{UserName: "carol", Email: "carol@example.com", Password: "secret1"}
	if _, err := s.Signup(ctx, req); err != nil {
		t.Fatalf("signup: %v", err)
	}
	req.Email = "other@example.com"
	_, err := s.Signup(ctx, req)
	expectCode(t, err, apperrors.CodeConflict)
}

func TestSignupValidation(t *testing.T) {
	s := newAuth(t)
	_, err := s.Signup(context.Background(), models.SignupRequest{UserName: "dd", Email: "not-an-email", Password: "123"})
	expectCode(t, err, apperrors.CodeInvalid)
	e := apperrors.As(err)
	for _, field := range []string{"username", "email", "password"} {
		if e.Metadata[field] == "" {
			t.Fatalf("expected %s in details, got %v", field, e.Metadata)
		}
	}
}

func TestLoginIssuesSignedToken(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()
	u, err := s.Signup(ctx, models.SignupRequest{UserName: "erin", Email: "erin@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	for _, identifier := range []string{"erin", "erin@example.com"} {
		resp, err := s.Login(ctx, models.LoginRequest{Identifier: identifier, Password: "secret1"})
		if err != nil {
			t.Fatalf("login with %s: %v", identifier, err)
		}
		if resp.ExpiresIn != 60 || resp.UserID != u.ID || resp.Role != models.RoleOrganizer {
			t.Fatalf("unexpected login response %+v", resp)
		}

		claims := jwt.MapClaims{}
		_, err = jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if claims["sub"] != u.ID || claims["role"] != string(models.RoleOrganizer) {
			t.Fatalf("unexpected claims %v", claims)
		}
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()
	if _, err := s.Signup(ctx, models.SignupRequest{UserName: "frank", Email: "frank@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err := s.Login(ctx, models.LoginRequest{Identifier: "frank", Password: "wrong"})
	expectCode(t, err, apperrors.CodeUnauthorized)

	_, err = s.Login(ctx, models.LoginRequest{Identifier: "nobody", Password: "secret1"})
	expectCode(t, err, apperrors.CodeUnauthorized)
}
