package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
)

type TeacherRepository struct {
	*base.Repository
}

func NewTeacherRepository(repo *base.Repository) *TeacherRepository {
	return &TeacherRepository{Repository: repo}
}

func (r *TeacherRepository) getOne(ctx context.Context, op, where string, arg int64) (*model.Teacher, error) {
	query := `
		SELECT id, user_id, hourly_rate, is_approved, created_at
		FROM teachers
		WHERE ` + where

	var teacher model.Teacher
	err := r.QueryRow(ctx, query, arg).Scan(
		&teacher.ID,
		&teacher.UserID,
		&teacher.HourlyRate,
		&teacher.IsApproved,
		&teacher.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &teacher, nil
}

// GetByID получает профиль учителя по ID
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	return r.getOne(ctx, "get teacher by id", "id = $1", id)
}

// GetByUserID получает профиль учителя по владельцу
func (r *TeacherRepository) GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error) {
	return r.getOne(ctx, "get teacher by user id", "user_id = $1", userID)
}
