package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type venueRepository struct {
	db *sql.DB
}

func NewVenueRepository(db *sql.DB) interfaces.VenueRepository {
	return &venueRepository{db: db}
}

const selectVenue = `
	SELECT id, name, address, latitude, longitude, capacity, description, manager_id, created_at, updated_at
	FROM venues
`

func scanVenue(s scanner) (*models.Venue, error) {
	var (
		v        models.Venue
		capacity sql.NullInt64
	)
	err := s.Scan(&v.ID, &v.Name, &v.Address, &v.Latitude, &v.Longitude, &capacity, &v.Description, &v.ManagerID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Capacity = intPtr(capacity)
	return &v, nil
}

func scanVenues(rows *sql.Rows) ([]models.Venue, error) {
	defer rows.Close()
	venues := []models.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, *v)
	}
	return venues, rows.Err()
}

func (r *venueRepository) Create(ctx context.Context, venue *models.Venue) error {
	query := `
		INSERT INTO venues (id, name, address, latitude, longitude, capacity, description, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		venue.ID, venue.Name, venue.Address, venue.Latitude, venue.Longitude,
		nullableInt(venue.Capacity), venue.Description, venue.ManagerID,
	).Scan(&venue.CreatedAt, &venue.UpdatedAt)
	if err != nil {
		return translate(err, "create venue")
	}
	return nil
}

func (r *venueRepository) GetByID(ctx context.Context, id string) (*models.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx, selectVenue+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("venue", id)
	}
	if err != nil {
		return nil, translate(err, "get venue")
	}
	return v, nil
}

func (r *venueRepository) List(ctx context.Context, managerID string) ([]models.Venue, error) {
	query := selectVenue
	var args []any
	if managerID != "" {
		query += ` WHERE manager_id = $1`
		args = append(args, managerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list venues")
	}
	venues, err := scanVenues(rows)
	if err != nil {
		return nil, translate(err, "list venues")
	}
	return venues, nil
}

// Search applies the keyword and latitude band in SQL. The exact distance
// filter is left to the caller.
func (r *venueRepository) Search(ctx context.Context, filter interfaces.VenueFilter) ([]models.Venue, error) {
	query := selectVenue + ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR address ILIKE $%d)`, argPos, argPos)
		args = append(args, "%"+escapeLike(kw)+"%")
		argPos++
	}
	if filter.MinLat != nil {
		query += fmt.Sprintf(` AND latitude >= $%d`, argPos)
		args = append(args, *filter.MinLat)
		argPos++
	}
	if filter.MaxLat != nil {
		query += fmt.Sprintf(` AND latitude <= $%d`, argPos)
		args = append(args, *filter.MaxLat)
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "search venues")
	}
	venues, err := scanVenues(rows)
	if err != nil {
		return nil, translate(err, "search venues")
	}
	return venues, nil
}

func (r *venueRepository) Update(ctx context.Context, id string, req *models.UpdateVenueRequest, guard interfaces.VenueGuard) (*models.Venue, error) {
	var out *models.Venue
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.lockVenue(ctx, tx, id, guard); err != nil {
			return err
		}

		query := `
			UPDATE venues
			SET name = COALESCE($1, name),
				address = COALESCE($2, address),
				latitude = COALESCE($3, latitude),
				longitude = COALESCE($4, longitude),
				capacity = COALESCE($5, capacity),
				description = COALESCE($6, description),
				updated_at = NOW()
			WHERE id = $7
			RETURNING id, name, address, latitude, longitude, capacity, description, manager_id, created_at, updated_at
		`
		v, err := scanVenue(tx.QueryRowContext(ctx, query,
			req.Name, req.Address, req.Latitude, req.Longitude, nullableInt(req.Capacity), req.Description, id,
		))
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *venueRepository) Delete(ctx context.Context, id string, guard interfaces.VenueGuard) ([]string, error) {
	var keys []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.lockVenue(ctx, tx, id, guard); err != nil {
			return err
		}

		// Blocks until in-flight permit applications on these bookings commit.
		if _, err := queryStrings(ctx, tx, `SELECT id FROM bookings WHERE venue_id = $1 ORDER BY id FOR UPDATE`, id); err != nil {
			return err
		}

		var err error
		keys, err = queryStrings(ctx, tx, `
			SELECT d.object_key
			FROM permit_documents d
			JOIN permits p ON p.id = d.permit_id
			JOIN bookings b ON b.id = p.booking_id
			WHERE b.venue_id = $1
			ORDER BY d.object_key
		`, id)
		if err != nil {
			return err
		}

		stmts := []string{
			`DELETE FROM permit_documents WHERE permit_id IN (
				SELECT p.id FROM permits p JOIN bookings b ON b.id = p.booking_id WHERE b.venue_id = $1
			)`,
			`DELETE FROM permits WHERE booking_id IN (SELECT id FROM bookings WHERE venue_id = $1)`,
			`DELETE FROM bookings WHERE venue_id = $1`,
			`DELETE FROM venues WHERE id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// lockVenue loads the venue FOR UPDATE and runs guard on it.
func (r *venueRepository) lockVenue(ctx context.Context, tx *sql.Tx, id string, guard interfaces.VenueGuard) error {
	v, err := scanVenue(tx.QueryRowContext(ctx, selectVenue+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("venue", id)
	}
	if err != nil {
		return err
	}
	if guard != nil {
		return guard(v)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
