package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBookingInput() CreateBookingInput {
	return CreateBookingInput{
		StudentID: studentUserID,
		TeacherID: teacherID,
		Date:      time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC),
		StartTime: "15:00",
		Duration:  decimal.RequireFromString("1.5"),
		Discount:  decimal.NewFromInt(10),
		Notes:     "алгебра",
	}
}

func TestBookingService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.bookings.Create(ctx, validBookingInput())
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusPending, booking.Status)
	assert.True(t, booking.Price.Equal(decimal.NewFromInt(75)), "price = 50/h * 1.5h")
	assert.True(t, booking.TotalPrice.Equal(decimal.NewFromInt(65)))
	assert.True(t, booking.TotalPrice.Equal(booking.Price.Sub(booking.Discount)))
	assert.Equal(t, time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC), booking.StartsAt)
	assert.Len(t, env.db.bookings, 1)
	assert.Equal(t, []int64{teacherUserID}, env.notifier.recipients(model.NotificationBookingRequested))
}

func TestBookingService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(env *testEnv)
		modify  func(in *CreateBookingInput)
		wantErr error
	}{
		{
			name:    "teacher not found",
			modify:  func(in *CreateBookingInput) { in.TeacherID = 999 },
			wantErr: ErrNotFound,
		},
		{
			name: "teacher not approved",
			prepare: func(env *testEnv) {
				teacher := env.db.teachers[teacherID]
				teacher.IsApproved = false
				env.db.teachers[teacherID] = teacher
			},
			wantErr: ErrBadRequest,
		},
		{
			name:    "discount exceeds price",
			modify:  func(in *CreateBookingInput) { in.Discount = decimal.NewFromInt(76) },
			wantErr: ErrBadRequest,
		},
		{
			name:    "negative discount",
			modify:  func(in *CreateBookingInput) { in.Discount = decimal.NewFromInt(-1) },
			wantErr: ErrBadRequest,
		},
		{
			name:    "zero duration",
			modify:  func(in *CreateBookingInput) { in.Duration = decimal.Zero },
			wantErr: ErrBadRequest,
		},
		{
			name:    "malformed start time",
			modify:  func(in *CreateBookingInput) { in.StartTime = "25:99" },
			wantErr: ErrBadRequest,
		},
		{
			name: "start in the past",
			modify: func(in *CreateBookingInput) {
				in.Date = time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
				in.StartTime = "09:00"
			},
			wantErr: ErrBadRequest,
		},
		{
			name: "same slot already booked",
			prepare: func(env *testEnv) {
				env.seedBooking(model.BookingStatusConfirmed, time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC))
			},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.prepare != nil {
				tt.prepare(env)
			}
			in := validBookingInput()
			if tt.modify != nil {
				tt.modify(&in)
			}
			before := len(env.db.bookings)

			_, err := env.bookings.Create(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, env.db.bookings, before)
			assert.Empty(t, env.notifier.sent)
		})
	}
}

func TestBookingService_CreateAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedBooking(model.BookingStatusCanceled, time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC))

	booking, err := env.bookings.Create(context.Background(), validBookingInput())
	require.NoError(t, err)
	assert.NotEqual(t, seeded.ID, booking.ID)
}

func TestBookingService_CreateNormalizesStartTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := validBookingInput()
	in.StartTime = "9:00"
	booking, err := env.bookings.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "09:00", booking.StartTime)
	assert.Equal(t, "09:00", env.db.bookings[booking.ID].StartTime)
	assert.Equal(t, time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC), booking.StartsAt)

	// Тот же слот в другой записи
	in.StartTime = "09:00"
	_, err = env.bookings.Create(ctx, in)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, env.db.bookings, 1)
}

func TestBookingService_ConfirmAndReject(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher confirms pending booking", func(t *testing.T) {
		env := newTestEnv(t)
		seeded := env.seedBooking(model.BookingStatusPending, testNow.Add(48*time.Hour))

		booking, err := env.bookings.Confirm(ctx, seeded.ID, teacherUserID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
		assert.Equal(t, []int64{studentUserID}, env.notifier.recipients(model.NotificationBookingConfirmed))

		_, err = env.bookings.Confirm(ctx, seeded.ID, teacherUserID)
		assert.ErrorIs(t, err, ErrBadRequest)
		assert.Len(t, env.notifier.sent, 1)
	})

	t.Run("teacher rejects pending booking", func(t *testing.T) {
		env := newTestEnv(t)
		seeded := env.seedBooking(model.BookingStatusPending, testNow.Add(48*time.Hour))

		booking, err := env.bookings.Reject(ctx, seeded.ID, teacherUserID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusRejected, booking.Status)
		assert.Equal(t, []int64{studentUserID}, env.notifier.recipients(model.NotificationBookingRejected))
	})

	t.Run("only owning teacher may decide", func(t *testing.T) {
		env := newTestEnv(t)
		seeded := env.seedBooking(model.BookingStatusPending, testNow.Add(48*time.Hour))

		for _, actor := range []int64{studentUserID, strangerUserID, adminUserID} {
			_, err := env.bookings.Confirm(ctx, seeded.ID, actor)
			assert.ErrorIs(t, err, ErrForbidden, "confirm by %d", actor)
			_, err = env.bookings.Reject(ctx, seeded.ID, actor)
			assert.ErrorIs(t, err, ErrForbidden, "reject by %d", actor)
		}
		assert.Equal(t, model.BookingStatusPending, env.booking(seeded.ID).Status)
	})

	t.Run("missing booking", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.bookings.Confirm(ctx, 424242, teacherUserID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 404, StatusCode(err))
	})
}

func TestBookingService_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		status     model.BookingStatus
		actor      int64
		role       model.Role
		wantErr    error
		wantNotify []int64
	}{
		{name: "student cancels pending", status: model.BookingStatusPending, actor: studentUserID, role: model.RoleStudent, wantNotify: []int64{teacherUserID}},
		{name: "teacher cancels confirmed", status: model.BookingStatusConfirmed, actor: teacherUserID, role: model.RoleTeacher, wantNotify: []int64{studentUserID}},
		{name: "admin override", status: model.BookingStatusConfirmed, actor: adminUserID, role: model.RoleAdmin, wantNotify: []int64{studentUserID, teacherUserID}},
		{name: "stranger", status: model.BookingStatusPending, actor: strangerUserID, role: model.RoleStudent, wantErr: ErrForbidden},
		{name: "already completed", status: model.BookingStatusCompleted, actor: studentUserID, role: model.RoleStudent, wantErr: ErrBadRequest},
		{name: "already canceled", status: model.BookingStatusCanceled, actor: studentUserID, role: model.RoleStudent, wantErr: ErrBadRequest},
		{name: "already rejected", status: model.BookingStatusRejected, actor: teacherUserID, role: model.RoleTeacher, wantErr: ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			seeded := env.seedBooking(tt.status, testNow.Add(24*time.Hour))

			booking, err := env.bookings.Cancel(context.Background(), seeded.ID, tt.actor, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.status, env.booking(seeded.ID).Status)
				assert.Empty(t, env.notifier.sent)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, model.BookingStatusCanceled, booking.Status)
			require.NotNil(t, booking.CanceledBy)
			assert.Equal(t, strconv.FormatInt(tt.actor, 10), *booking.CanceledBy)
			require.NotNil(t, booking.CanceledAt)
			assert.Equal(t, testNow, *booking.CanceledAt)
			assert.Equal(t, tt.wantNotify, env.notifier.recipients(model.NotificationBookingCanceled))
		})
	}
}

func TestBookingService_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()

	for _, status := range []model.BookingStatus{
		model.BookingStatusCompleted,
		model.BookingStatusCanceled,
		model.BookingStatusRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t)
			seeded := env.seedBooking(status, testNow.Add(24*time.Hour))

			_, err := env.bookings.Confirm(ctx, seeded.ID, teacherUserID)
			assert.ErrorIs(t, err, ErrBadRequest)
			_, err = env.bookings.Reject(ctx, seeded.ID, teacherUserID)
			assert.ErrorIs(t, err, ErrBadRequest)
			_, err = env.bookings.Cancel(ctx, seeded.ID, adminUserID, model.RoleAdmin)
			assert.ErrorIs(t, err, ErrBadRequest)

			assert.Equal(t, status, env.booking(seeded.ID).Status)
		})
	}
}

func TestBookingService_NotificationFailureKeepsMutation(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("telegram is down")
	seeded := env.seedBooking(model.BookingStatusPending, testNow.Add(24*time.Hour))

	booking, err := env.bookings.Confirm(context.Background(), seeded.ID, teacherUserID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, model.BookingStatusConfirmed, env.booking(seeded.ID).Status)
}

func TestBookingService_Sessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seeded := env.seedBooking(model.BookingStatusConfirmed, testNow.Add(-2*time.Minute))

	_, err := env.bookings.StartSession(ctx, seeded.ID, studentUserID)
	assert.ErrorIs(t, err, ErrBadRequest, "unpaid booking")

	_, err = env.bookings.StartSession(ctx, seeded.ID, strangerUserID)
	assert.ErrorIs(t, err, ErrForbidden)

	env.seedPayment(seeded.ID, model.PaymentStatusCompleted, seeded.TotalPrice)

	session, err := env.bookings.StartSession(ctx, seeded.ID, teacherUserID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.RoomID)
	assert.Equal(t, testNow, session.StartedAt)
	assert.Equal(t, []int64{studentUserID}, env.notifier.recipients(model.NotificationSessionStarted))

	again, err := env.bookings.StartSession(ctx, seeded.ID, studentUserID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)
	assert.Len(t, env.db.sessions, 1)

	env.bookings.now = func() time.Time { return testNow.Add(50 * time.Minute) }
	ended, err := env.bookings.EndSession(ctx, seeded.ID, studentUserID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	require.NotNil(t, ended.DurationMinutes)
	assert.Equal(t, 50, *ended.DurationMinutes)
	assert.Equal(t, model.BookingStatusCompleted, env.booking(seeded.ID).Status)
	assert.Equal(t, []int64{teacherUserID}, env.notifier.recipients(model.NotificationSessionEnded))

	_, err = env.bookings.EndSession(ctx, seeded.ID, studentUserID)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestBookingService_EndSessionWithoutStart(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedBooking(model.BookingStatusConfirmed, testNow.Add(-time.Hour))

	_, err := env.bookings.EndSession(context.Background(), seeded.ID, teacherUserID)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, model.BookingStatusConfirmed, env.booking(seeded.ID).Status)
}

func TestBookingService_Queries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	older := env.seedBooking(model.BookingStatusCompleted, testNow.Add(-72*time.Hour))
	newer := env.seedBooking(model.BookingStatusConfirmed, testNow.Add(24*time.Hour))

	all, err := env.bookings.ListByStudent(ctx, studentUserID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	status := model.BookingStatusCompleted
	completed, err := env.bookings.ListByTeacher(ctx, teacherID, &status)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, older.ID, completed[0].ID)

	none, err := env.bookings.ListByStudent(ctx, strangerUserID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	bogus := model.BookingStatus("lost")
	_, err = env.bookings.ListByStudent(ctx, studentUserID, &bogus)
	assert.ErrorIs(t, err, ErrBadRequest)

	env.seedPayment(newer.ID, model.PaymentStatusPending, newer.TotalPrice)
	detail, err := env.bookings.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Payment)
	assert.Nil(t, detail.Session)

	_, err = env.bookings.GetByID(ctx, 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}
