package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/config"
	"github.com/Freeeeeet/tutor_ledger/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job периодическая задача: имя, расписание cron и тело
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context, now time.Time) (service.JobResult, error)
}

// AutomationJobs задачи автоматизации бронирований по расписаниям из конфига
func AutomationJobs(cfg config.CronConfig, automation *service.AutomationService) []Job {
	return []Job{
		{Name: "reminder", Spec: cfg.Reminder, Run: automation.SendReminders},
		{Name: "no_show", Spec: cfg.NoShow, Run: automation.CancelNoShows},
		{Name: "auto_session", Spec: cfg.AutoSession, Run: automation.CreateDueSessions},
		{Name: "session_completion", Spec: cfg.SessionCompletion, Run: automation.CompleteFinishedSessions},
	}
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron    *cron.Cron
	locker  JobLocker
	timeout time.Duration
	now     func() time.Time
	baseCtx context.Context
	logger  *zap.Logger
}

// NewScheduler создаёт новый планировщик. timeout ограничивает один прогон задачи.
func NewScheduler(locker JobLocker, timeout time.Duration, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLog := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		locker:  locker,
		timeout: timeout,
		now:     time.Now,
		baseCtx: context.Background(),
		logger:  logger,
	}
}

// Register добавляет задачу в расписание
func (s *Scheduler) Register(job Job) error {
	if _, err := s.cron.AddFunc(job.Spec, func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("register job %s: %w", job.Name, err)
	}
	s.logger.Info("Job registered", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.baseCtx = ctx
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт завершения выполняющихся задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// runJob выполняет задачу под блокировкой. Ошибки только логируются.
func (s *Scheduler) runJob(job Job) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	unlock, acquired, err := s.locker.TryLock(ctx, job.Name)
	if err != nil {
		s.logger.Error("Failed to acquire job lock", zap.String("job", job.Name), zap.Error(err))
		return
	}
	if !acquired {
		s.logger.Debug("Job is running on another instance, skipped", zap.String("job", job.Name))
		return
	}
	defer unlock()

	started := s.now()
	result, err := job.Run(ctx, started)
	if err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	if result.Failed > 0 {
		s.logger.Warn("Job finished with failures",
			zap.String("job", job.Name),
			zap.Int("failed", result.Failed),
			zap.Int("processed", result.Processed),
		)
	}
	s.logger.Debug("Job run finished",
		zap.String("job", job.Name),
		zap.Duration("took", s.now().Sub(started)),
	)
}

// cronLogger пишет внутренние сообщения cron в zap
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
