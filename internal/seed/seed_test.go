package seed

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
	"venuepermits/internal/repository/memory"
)

const fixtureYAML = `
users:
  - username: admin
    email: admin@example.com
    password: admin123
    role: AUTHORITY
  - username: manager
    email: Manager@Example.com
    password: manager123
    role: VENUE_MANAGER
venues:
  - name: Kigali Arena
    address: KG 17 Ave
    latitude: -1.9536
    longitude: 30.0606
    capacity: 10000
    manager: manager
`

func newSeeder(store *memory.Store) *Seeder {
	return NewSeeder(store.Users(), store.Venues(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDefaultFixtureSeedsAuthority(t *testing.T) {
	f, err := Load("default")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if len(f.Users) != 1 || f.Users[0].Role != models.RoleAuthority {
		t.Fatalf("unexpected default fixture %+v", f)
	}
}

func TestApplyIsRepeatable(t *testing.T) {
	f, err := Parse(strings.NewReader(fixtureYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	store := memory.NewStore()
	s := newSeeder(store)
	ctx := context.Background()

	res, err := s.Apply(ctx, f)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.UsersCreated != 2 || res.VenuesCreated != 1 {
		t.Fatalf("unexpected first result %+v", res)
	}

	res, err = s.Apply(ctx, f)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.UsersSkipped != 2 || res.VenuesSkipped != 1 || res.UsersCreated != 0 || res.VenuesCreated != 0 {
		t.Fatalf("unexpected second result %+v", res)
	}

	mgr, err := store.Users().GetByIdentifier(ctx, "manager@example.com")
	if err != nil {
		t.Fatalf("lookup manager: %v", err)
	}
	venues, _ := store.Venues().List(ctx, mgr.ID)
	if len(venues) != 1 || venues[0].Capacity == nil || *venues[0].Capacity != 10000 {
		t.Fatalf("unexpected venues %+v", venues)
	}
}

func TestApplyRejectsVenueForNonManager(t *testing.T) {
	f, err := Parse(strings.NewReader(`
users:
  - {username: admin, email: admin@example.com, password: admin123, role: AUTHORITY}
venues:
  - {name: Hall, address: Main St, latitude: 0, longitude: 0, manager: admin}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = newSeeder(memory.NewStore()).Apply(context.Background(), f)
	if apperrors.CodeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse(strings.NewReader("users:\n  - usernme: typo\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestApplyRejectsUnknownRole(t *testing.T) {
	f := &Fixture{Users: []UserFixture{{Username: "x", Email: "x@example.com", Password: "secret1", Role: "ADMIN"}}}
	_, err := newSeeder(memory.NewStore()).Apply(context.Background(), f)
	if apperrors.CodeOf(err) != apperrors.CodeInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
}
