package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
)

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(repo *base.Repository) *SessionRepository {
	return &SessionRepository{Repository: repo}
}

// Create создаёт занятие для бронирования. Если занятие уже есть, возвращает false.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) (bool, error) {
	query := `
		INSERT INTO sessions (booking_id, room_id, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (booking_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, session.BookingID, session.RoomID, session.StartedAt).
		Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create session: %w", err)
	}

	return true, nil
}

// GetByBookingID получает занятие по бронированию
func (r *SessionRepository) GetByBookingID(ctx context.Context, bookingID int64) (*model.Session, error) {
	query := `
		SELECT id, booking_id, room_id, started_at, ended_at, duration_minutes, created_at
		FROM sessions
		WHERE booking_id = $1
	`

	var session model.Session
	err := r.QueryRow(ctx, query, bookingID).Scan(
		&session.ID,
		&session.BookingID,
		&session.RoomID,
		&session.StartedAt,
		&session.EndedAt,
		&session.DurationMinutes,
		&session.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by booking: %w", err)
	}

	return &session, nil
}

// End закрывает занятие один раз. Возвращает nil, если занятие не найдено или уже закрыто.
func (r *SessionRepository) End(ctx context.Context, bookingID int64, at time.Time) (*model.Session, error) {
	query := `
		UPDATE sessions
		SET ended_at = $2,
			duration_minutes = GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2 - started_at)) / 60))::int
		WHERE booking_id = $1 AND ended_at IS NULL
		RETURNING id, booking_id, room_id, started_at, ended_at, duration_minutes, created_at
	`

	var session model.Session
	err := r.QueryRow(ctx, query, bookingID, at).Scan(
		&session.ID,
		&session.BookingID,
		&session.RoomID,
		&session.StartedAt,
		&session.EndedAt,
		&session.DurationMinutes,
		&session.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("end session: %w", err)
	}

	return &session, nil
}
