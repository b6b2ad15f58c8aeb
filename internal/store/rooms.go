package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CreateRoom inserts a named room owned by adminID.
func (p *Postgres) CreateRoom(ctx context.Context, name, adminID string) (RoomRecord, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO rooms (name, admin_id)
		VALUES ($1, $2)
		RETURNING id, name, admin_id, created_at
	`, name, adminID)

	var rm RoomRecord
	if err := row.Scan(&rm.ID, &rm.Name, &rm.AdminID, &rm.CreatedAt); err != nil {
		return RoomRecord{}, err
	}
	return rm, nil
}

// ListRooms returns rooms ordered by name.
func (p *Postgres) ListRooms(ctx context.Context, limit int) ([]RoomRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, admin_id, created_at
		FROM rooms
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoomRecord
	for rows.Next() {
		var rm RoomRecord
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.AdminID, &rm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// GetRoom fetches a room record by ID.
func (p *Postgres) GetRoom(ctx context.Context, id string) (RoomRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, admin_id, created_at
		FROM rooms
		WHERE id = $1
	`, id)

	var rm RoomRecord
	if err := row.Scan(&rm.ID, &rm.Name, &rm.AdminID, &rm.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoomRecord{}, ErrNotFound
		}
		return RoomRecord{}, err
	}
	return rm, nil
}

// DeleteRoom removes a room, but only for its owning admin.
func (p *Postgres) DeleteRoom(ctx context.Context, id, adminID string) error {
	ct, err := p.pool.Exec(ctx, `
		DELETE FROM rooms
		WHERE id = $1 AND admin_id = $2
	`, id, adminID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	p.log.Info("room.deleted", "id", id)
	return nil
}
