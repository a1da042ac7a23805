// Package seed loads YAML fixtures of users and venues into the stores.
// Seeding is an operator action, so fixtures may create any role.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/authz"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
	"venuepermits/internal/services"
)

//go:embed default.yaml
var defaultFixture []byte

type Fixture struct {
	Users  []UserFixture  `yaml:"users"`
	Venues []VenueFixture `yaml:"venues"`
}

type UserFixture struct {
	Username string      `yaml:"username"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     models.Role `yaml:"role"`
}

// VenueFixture names its manager by username.
type VenueFixture struct {
	Name        string  `yaml:"name"`
	Address     string  `yaml:"address"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	Capacity    *int    `yaml:"capacity,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Manager     string  `yaml:"manager"`
}

// Result counts what Apply created and skipped.
type Result struct {
	UsersCreated  int
	UsersSkipped  int
	VenuesCreated int
	VenuesSkipped int
}

// Parse decodes a fixture, rejecting unknown keys.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Load reads the fixture at path. The name "default" selects the built-in
// fixture with the bootstrap authority account.
func Load(path string) (*Fixture, error) {
	if path == "default" {
		return Parse(strings.NewReader(string(defaultFixture)))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

type Seeder struct {
	users  interfaces.UserRepository
	venues interfaces.VenueRepository
	logger *slog.Logger
}

func NewSeeder(users interfaces.UserRepository, venues interfaces.VenueRepository, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{users: users, venues: venues, logger: logger}
}

// Apply creates the fixture's users and venues. Existing usernames and
// venues already owned by the same manager under the same name are skipped,
// so a fixture can be applied repeatedly.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result

	for _, uf := range f.Users {
		exists, err := s.users.ExistsByUserName(ctx, uf.Username)
		if err != nil {
			return res, err
		}
		if exists {
			res.UsersSkipped++
			s.logger.InfoContext(ctx, "seed user exists", "username", uf.Username)
			continue
		}
		u, err := services.NewUser(uf.Username, strings.ToLower(strings.TrimSpace(uf.Email)), uf.Password, uf.Role)
		if err != nil {
			return res, fmt.Errorf("user %s: %w", uf.Username, err)
		}
		if err := s.users.Create(ctx, u); err != nil {
			return res, fmt.Errorf("user %s: %w", uf.Username, err)
		}
		res.UsersCreated++
		s.logger.InfoContext(ctx, "seed user created", "username", u.UserName, "role", u.Role)
	}

	venueSvc := services.NewVenueService(s.venues, nil, s.logger)
	for _, vf := range f.Venues {
		mgr, err := s.users.GetByIdentifier(ctx, vf.Manager)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeNotFound {
				return res, fmt.Errorf("venue %s: unknown manager %q", vf.Name, vf.Manager)
			}
			return res, err
		}
		owned, err := s.venues.List(ctx, mgr.ID)
		if err != nil {
			return res, err
		}
		if hasVenue(owned, vf.Name) {
			res.VenuesSkipped++
			continue
		}
		_, err = venueSvc.Create(ctx, authz.Principal{ID: mgr.ID, Role: mgr.Role}, models.CreateVenueRequest{
			Name:        vf.Name,
			Address:     vf.Address,
			Latitude:    &vf.Latitude,
			Longitude:   &vf.Longitude,
			Capacity:    vf.Capacity,
			Description: vf.Description,
		})
		if err != nil {
			return res, fmt.Errorf("venue %s: %w", vf.Name, err)
		}
		res.VenuesCreated++
	}
	return res, nil
}

func hasVenue(venues []models.Venue, name string) bool {
	for _, v := range venues {
		if strings.EqualFold(v.Name, name) {
			return true
		}
	}
	return false
}
