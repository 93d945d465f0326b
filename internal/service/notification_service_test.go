package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/notify"
)

type outboxNotifier struct {
	mu    sync.Mutex
	sent  []notify.Message
	err   error
	calls int
}

func (n *outboxNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *outboxNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

func startNotifications(t *testing.T, n notify.Notifier, enabled bool) *NotificationService {
	t.Helper()
	svc := NewNotificationService(n, config.NotificationConfig{Enabled: enabled, Workers: 1, MaxRetries: 1}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(func() {
		svc.Stop()
		cancel()
	})
	return svc
}

func flush(t *testing.T, svc *NotificationService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Flush(ctx))
}

func TestNotificationServiceMessagesBothTeachers(t *testing.T) {
	notifier := &outboxNotifier{}
	svc := startNotifications(t, notifier, true)
	store := fixtureStore()

	svc.NotifySubstitution(context.Background(), store, models.Substitution{
		Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.ReplaceWithTeacher("t2"),
	})
	flush(t, svc)

	sent := notifier.messages()
	require.Len(t, sent, 2)
	recipients := []string{sent[0].To, sent[1].To}
	assert.ElementsMatch(t, []string{"ana@school.test", "@budi"}, recipients)
	assert.Equal(t, "Substitution on 2024-09-02", sent[0].Subject)
	assert.Contains(t, sent[0].Text, "Budi replaces Ana")
}

func TestNotificationServiceSkipsTeachersWithoutAddress(t *testing.T) {
	notifier := &outboxNotifier{}
	svc := startNotifications(t, notifier, true)

	svc.NotifySubstitution(context.Background(), fixtureStore(), models.Substitution{
		Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.ReplaceWithTeacher("t3"),
	})
	flush(t, svc)

	sent := notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Ana", sent[0].Name)
}

func TestNotificationServiceDisabled(t *testing.T) {
	notifier := &outboxNotifier{}
	svc := startNotifications(t, notifier, false)

	svc.NotifySubstitution(context.Background(), fixtureStore(), models.Substitution{
		Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.Cancelled(),
	})
	flush(t, svc)

	assert.Zero(t, notifier.calls)
}

func TestNotificationServiceNoChannelIsNotRetried(t *testing.T) {
	notifier := &outboxNotifier{err: notify.ErrNoChannel}
	svc := startNotifications(t, notifier, true)

	svc.NotifySubstitution(context.Background(), fixtureStore(), models.Substitution{
		Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.Conducted(),
	})
	flush(t, svc)

	assert.Equal(t, 1, notifier.calls)
}

func TestNotificationServiceRetriesFailures(t *testing.T) {
	notifier := &outboxNotifier{err: errors.New("smtp timeout")}
	svc := startNotifications(t, notifier, true)

	svc.NotifySubstitution(context.Background(), fixtureStore(), models.Substitution{
		Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.Cancelled(),
	})
	flush(t, svc)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, 2, notifier.calls, "one attempt plus one retry")
}
