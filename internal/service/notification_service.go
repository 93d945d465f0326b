package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/notify"
)

const notificationJobType = "substitution.notify"

// NotificationService delivers substitution summaries to the teachers involved
// through a retrying background queue.
type NotificationService struct {
	notifier notify.Notifier
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
	enabled  bool
}

// NewNotificationService wires the delivery queue. Delivery is skipped entirely when
// cfg.Enabled is false.
func NewNotificationService(notifier notify.Notifier, cfg config.NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &NotificationService{notifier: notifier, metrics: metrics, logger: logger, enabled: cfg.Enabled}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Backoff:    true,
		OnDiscard:  s.discard,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop halts the delivery workers.
func (s *NotificationService) Stop() { s.queue.Stop() }

// Flush waits for queued deliveries.
func (s *NotificationService) Flush(ctx context.Context) error {
	return s.queue.Drain(ctx)
}

// NotifySubstitution queues one message per teacher affected by sub: the original
// teacher and, when different, the replacing teacher. Teachers without a notification
// address are skipped.
func (s *NotificationService) NotifySubstitution(ctx context.Context, store *TimetableStore, sub models.Substitution) {
	if !s.enabled {
		return
	}
	summary, err := FormatSubstitutionSummary(store, sub)
	if err != nil {
		s.logger.Warn("cannot format substitution", zap.String("lesson_id", sub.LessonID), zap.Error(err))
		return
	}
	for _, msg := range substitutionMessages(store, sub, summary) {
		job := jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: msg}
		if err := s.queue.Enqueue(job); err != nil {
			s.metrics.RecordNotification("dropped")
			s.logger.Warn("notification not queued", zap.String("to", msg.Name), zap.Error(err))
		}
	}
}

func substitutionMessages(store *TimetableStore, sub models.Substitution, summary string) []notify.Message {
	recipients := []string{sub.OriginalTeacherID}
	if id, ok := sub.Teacher(); ok && id != sub.OriginalTeacherID {
		recipients = append(recipients, id)
	}
	out := make([]notify.Message, 0, len(recipients))
	for _, id := range recipients {
		teacher, err := store.Teacher(id)
		if err != nil || teacher.NotifyAddress == nil {
			continue
		}
		out = append(out, notify.Message{
			To:      *teacher.NotifyAddress,
			Name:    teacher.Name,
			Subject: fmt.Sprintf("Substitution on %s", sub.Date),
			Text:    summary,
		})
	}
	return out
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(notify.Message)
	if !ok {
		return nil
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		if errors.Is(err, notify.ErrNoChannel) {
			s.metrics.RecordNotification("no_channel")
			s.logger.Debug("no channel for notification", zap.String("to", msg.Name))
			return nil
		}
		return err
	}
	s.metrics.RecordNotification("sent")
	return nil
}

func (s *NotificationService) discard(job jobs.Job, err error) {
	s.metrics.RecordNotification("failed")
	s.logger.Error("notification dropped after retries", zap.String("job_id", job.ID), zap.Error(err))
}
