package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

const defaultTokenTTL = 86400

var errInvalidCredentials = apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")

type AuthService struct {
	users     interfaces.UserRepository
	secret    []byte
	expiresIn int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(users interfaces.UserRepository, secret string, expiresInSeconds int64, logger *slog.Logger) *AuthService {
	if expiresInSeconds <= 0 {
		expiresInSeconds = defaultTokenTTL
	}
	return &AuthService{
		users:     users,
		secret:    []byte(secret),
		expiresIn: expiresInSeconds,
		logger:    resolveLogger(logger),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Signup registers an organizer. Venue managers and authorities are
// provisioned by an operator, so any other requested role is refused.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Role == "" {
		req.Role = models.RoleOrganizer
	}
	if req.Role != models.RoleOrganizer {
		return nil, apperrors.WithMetadata(apperrors.CodeForbidden, "only organizers can sign up", map[string]string{
			"role": string(req.Role),
		})
	}

	u, err := NewUser(req.UserName, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// NewUser builds a user with a bcrypt hash of password.
func NewUser(userName, email, password string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalid, "unknown role", map[string]string{"role": string(role)})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to hash password", err)
	}
	return &models.User{
		ID:           uuid.NewString(),
		UserName:     userName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}, nil
}

// Login checks the credentials and issues a signed access token. Unknown
// identifiers and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	u, err := s.users.GetByIdentifier(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"role":  string(u.Role),
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(s.expiresIn) * time.Second).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to sign token", err)
	}

	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   s.expiresIn,
		UserID:      u.ID,
		UserName:    u.UserName,
		Email:       u.Email,
		Role:        u.Role,
	}, nil
}
