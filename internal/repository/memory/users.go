package memory

import (
	"context"
	"strings"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.user.UserName, user.UserName) || strings.EqualFold(u.user.Email, user.Email) {
			return apperrors.WithMetadata(apperrors.CodeConflict, "username or email already registered", map[string]string{
				"username": user.UserName,
			})
		}
	}
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = userRecord{seq: r.s.nextSeq(), user: *user}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	u := rec.user
	return &u, nil
}

func (r *userRepo) GetByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.users {
		if strings.EqualFold(rec.user.UserName, identifier) || strings.EqualFold(rec.user.Email, identifier) {
			u := rec.user
			return &u, nil
		}
	}
	return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
}

func (r *userRepo) ExistsByUserName(_ context.Context, userName string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.users {
		if strings.EqualFold(rec.user.UserName, userName) {
			return true, nil
		}
	}
	return false, nil
}
