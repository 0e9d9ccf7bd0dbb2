package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Окна периодических задач. NoShowGracePeriod должен быть больше AutoSessionLookback:
// оплаченное занятие успевает получить сессию раньше, чем его отменят как неявку.
const (
	ReminderLeadTime    = time.Hour
	NoShowGracePeriod   = 15 * time.Minute
	AutoSessionLookback = 5 * time.Minute
)

// JobResult итог одного прогона задачи
type JobResult struct {
	Processed int
	Succeeded int
	Failed    int
}

// AutomationService тела периодических задач. Каждая задача выбирает строки по текущему
// статусу, поэтому повторный прогон не дублирует эффекты.
type AutomationService struct {
	tx       Transactor
	bookings BookingStore
	sessions SessionStore
	teachers TeacherStore
	notifier Notifier
	newRoom  func() string
	logger   *zap.Logger
}

func NewAutomationService(
	tx Transactor,
	bookings BookingStore,
	sessions SessionStore,
	teachers TeacherStore,
	notifier Notifier,
	logger *zap.Logger,
) *AutomationService {
	return &AutomationService{
		tx:       tx,
		bookings: bookings,
		sessions: sessions,
		teachers: teachers,
		notifier: notifier,
		newRoom:  uuid.NewString,
		logger:   logger,
	}
}

// SendReminders напоминает обоим участникам о занятиях в ближайший час, окно (now, now+1h]
func (s *AutomationService) SendReminders(ctx context.Context, now time.Time) (JobResult, error) {
	bookings, err := s.bookings.ListConfirmedStartingBetween(ctx, now, now.Add(ReminderLeadTime))
	if err != nil {
		return JobResult{}, fmt.Errorf("list upcoming bookings: %w", err)
	}

	var result JobResult
	for _, booking := range bookings {
		result.Processed++
		s.notifyBoth(ctx, booking, reminderNotification(booking))
		result.Succeeded++
	}

	s.logJob("reminder", result)
	return result, nil
}

// CancelNoShows отменяет подтверждённые занятия, которые так и не начались
func (s *AutomationService) CancelNoShows(ctx context.Context, now time.Time) (JobResult, error) {
	bookings, err := s.bookings.ListNoShowCandidates(ctx, now.Add(-NoShowGracePeriod))
	if err != nil {
		return JobResult{}, fmt.Errorf("list no-show candidates: %w", err)
	}

	var result JobResult
	for _, booking := range bookings {
		result.Processed++

		canceled, err := s.bookings.CancelNoShow(ctx, booking.ID, now)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to cancel no-show booking", zap.Int64("booking_id", booking.ID), zap.Error(err))
			continue
		}
		if canceled == nil {
			// Успели отменить или начать занятие между выборкой и обновлением
			s.logger.Info("No-show booking changed concurrently, skipped", zap.Int64("booking_id", booking.ID))
			continue
		}

		result.Succeeded++
		s.logger.Info("Booking canceled as no-show", zap.Int64("booking_id", canceled.ID))
		s.notifyBoth(ctx, canceled, noShowNotification(canceled))
	}

	s.logJob("no_show", result)
	return result, nil
}

// CreateDueSessions открывает сессии по оплаченным занятиям, время которых наступило
func (s *AutomationService) CreateDueSessions(ctx context.Context, now time.Time) (JobResult, error) {
	bookings, err := s.bookings.ListAutoSessionCandidates(ctx, now.Add(-AutoSessionLookback), now)
	if err != nil {
		return JobResult{}, fmt.Errorf("list auto-session candidates: %w", err)
	}

	var result JobResult
	for _, booking := range bookings {
		result.Processed++

		session := &model.Session{
			BookingID: booking.ID,
			RoomID:    s.newRoom(),
			StartedAt: now,
		}
		created, err := s.sessions.Create(ctx, session)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to create session", zap.Int64("booking_id", booking.ID), zap.Error(err))
			continue
		}
		if !created {
			continue
		}

		result.Succeeded++
		s.logger.Info("Session created automatically",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("session_id", session.ID),
			zap.String("room_id", session.RoomID),
		)
		s.notifyBoth(ctx, booking, sessionStartedNotification(booking, session))
	}

	s.logJob("auto_session", result)
	return result, nil
}

// CompleteFinishedSessions закрывает сессии, время которых вышло, и завершает бронирования
func (s *AutomationService) CompleteFinishedSessions(ctx context.Context, now time.Time) (JobResult, error) {
	bookings, err := s.bookings.ListFinishedWithOpenSession(ctx, now)
	if err != nil {
		return JobResult{}, fmt.Errorf("list finished sessions: %w", err)
	}

	var result JobResult
	for _, booking := range bookings {
		result.Processed++

		session, completed, err := finishSession(ctx, s.tx, s.bookings, s.sessions, booking.ID, now)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to complete session", zap.Int64("booking_id", booking.ID), zap.Error(err))
			continue
		}

		result.Succeeded++
		s.logger.Info("Session completed automatically",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("session_id", session.ID),
		)
		s.notifyBoth(ctx, completed, sessionEndedNotification(completed, session))
	}

	s.logJob("session_completion", result)
	return result, nil
}

func (s *AutomationService) notifyBoth(ctx context.Context, booking *model.Booking, n model.Notification) {
	deliver(ctx, s.notifier, s.logger, booking.StudentID, n)

	teacher, err := s.teachers.GetByID(ctx, booking.TeacherID)
	if err != nil || teacher == nil {
		s.logger.Warn("Failed to resolve booking teacher", zap.Int64("booking_id", booking.ID), zap.Error(err))
		return
	}
	deliver(ctx, s.notifier, s.logger, teacher.UserID, n)
}

func (s *AutomationService) logJob(job string, result JobResult) {
	if result.Processed == 0 {
		return
	}
	s.logger.Info("Job finished",
		zap.String("job", job),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
}
