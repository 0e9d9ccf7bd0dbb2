package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// RecurringScheduleRepository управляет еженедельными слотами доступности учителей
type RecurringScheduleRepository struct {
	*base.Repository
}

// NewRecurringScheduleRepository создаёт новый репозиторий
func NewRecurringScheduleRepository(repo *base.Repository) *RecurringScheduleRepository {
	return &RecurringScheduleRepository{Repository: repo}
}

func scanSchedule(row pgx.Row) (*model.RecurringSchedule, error) {
	schedule := &model.RecurringSchedule{}
	err := row.Scan(
		&schedule.ID,
		&schedule.TeacherID,
		&schedule.Weekday,
		&schedule.StartHour,
		&schedule.StartMinute,
		&schedule.DurationMinutes,
		&schedule.IsActive,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// GetByID получает recurring schedule по ID
func (r *RecurringScheduleRepository) GetByID(ctx context.Context, id int64) (*model.RecurringSchedule, error) {
	query := `
		SELECT id, teacher_id, weekday, start_hour, start_minute, duration_minutes, is_active, created_at, updated_at
		FROM recurring_schedules
		WHERE id = $1
	`

	schedule, err := scanSchedule(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring schedule by id: %w", err)
	}

	return schedule, nil
}

// GetActiveByTeacherID получает активные слоты учителя
func (r *RecurringScheduleRepository) GetActiveByTeacherID(ctx context.Context, teacherID int64) ([]*model.RecurringSchedule, error) {
	query := `
		SELECT id, teacher_id, weekday, start_hour, start_minute, duration_minutes, is_active, created_at, updated_at
		FROM recurring_schedules
		WHERE teacher_id = $1 AND is_active = true
		ORDER BY weekday, start_hour, start_minute
	`

	rows, err := r.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get recurring schedules by teacher: %w", err)
	}
	defer rows.Close()

	schedules := make([]*model.RecurringSchedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}

	return schedules, rows.Err()
}
