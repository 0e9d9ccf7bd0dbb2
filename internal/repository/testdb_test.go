package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/Freeeeeet/tutor_ledger/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// testDSNEnv строка подключения к Postgres для тестов репозиториев
const testDSNEnv = "TEST_DB_DSN"

// newTestRepo поднимает отдельную схему с применёнными миграциями.
// Без TEST_DB_DSN тест пропускается.
func newTestRepo(t *testing.T) *base.Repository {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping Postgres repository test", testDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "test_" + uuid.NewString()[:8]

	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = admin.Exec(dropCtx, "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		_ = admin.Close(dropCtx)
	})

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, "."))

	return base.NewRepository(pool)
}

// fixture учитель и студент, на которых вешаются бронирования
type fixture struct {
	repo      *base.Repository
	studentID int64
	teacherID int64
	adminID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newTestRepo(t)
	ctx := context.Background()

	f := &fixture{repo: repo}
	f.studentID = insertUser(t, repo, 1001, model.RoleStudent)
	f.adminID = insertUser(t, repo, 1003, model.RoleAdmin)
	teacherUserID := insertUser(t, repo, 1002, model.RoleTeacher)

	err := repo.QueryRow(ctx,
		`INSERT INTO teachers (user_id, hourly_rate, is_approved) VALUES ($1, $2, true) RETURNING id`,
		teacherUserID, decimal.NewFromInt(1000),
	).Scan(&f.teacherID)
	require.NoError(t, err)

	return f
}

func insertUser(t *testing.T, repo *base.Repository, telegramID int64, role model.Role) int64 {
	t.Helper()
	var id int64
	err := repo.QueryRow(context.Background(),
		`INSERT INTO users (telegram_id, username, role) VALUES ($1, $2, $3) RETURNING id`,
		telegramID, fmt.Sprintf("user%d", telegramID), string(role),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// booking собирает подтверждённое бронирование на startsAt длительностью hours
func (f *fixture) booking(startsAt time.Time, hours string) *model.Booking {
	price := decimal.NewFromInt(1000).Mul(decimal.RequireFromString(hours))
	return &model.Booking{
		StudentID:  f.studentID,
		TeacherID:  f.teacherID,
		Date:       time.Date(startsAt.Year(), startsAt.Month(), startsAt.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:  startsAt.Format("15:04"),
		StartsAt:   startsAt,
		Duration:   decimal.RequireFromString(hours),
		Price:      price,
		Discount:   decimal.Zero,
		TotalPrice: price,
		Status:     model.BookingStatusConfirmed,
	}
}

func (f *fixture) createBooking(t *testing.T, startsAt time.Time, hours string) *model.Booking {
	t.Helper()
	b := f.booking(startsAt, hours)
	require.NoError(t, NewBookingRepository(f.repo).Create(context.Background(), b))
	return b
}

func (f *fixture) createPayment(t *testing.T, booking *model.Booking, status model.PaymentStatus) *model.Payment {
	t.Helper()
	payment := &model.Payment{
		BookingID: booking.ID,
		Amount:    booking.TotalPrice,
		Currency:  "RUB",
		Status:    status,
	}
	require.NoError(t, NewPaymentRepository(f.repo).Create(context.Background(), payment))
	return payment
}
