package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []Message
}

func (r *recordingNotifier) Send(ctx context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestDispatcherRoutesByAddress(t *testing.T) {
	email := &recordingNotifier{}
	tg := &recordingNotifier{}
	d := &Dispatcher{Email: email, Telegram: tg}

	require.NoError(t, d.Send(context.Background(), Message{To: "ana@school.test", Text: "hi"}))
	require.NoError(t, d.Send(context.Background(), Message{To: " 123456 ", Text: "hi"}))
	require.NoError(t, d.Send(context.Background(), Message{To: "@staffroom", Text: "hi"}))

	require.Len(t, email.sent, 1)
	require.Len(t, tg.sent, 2)
	assert.Equal(t, "123456", tg.sent[0].To)
	assert.Equal(t, "@staffroom", tg.sent[1].To)
}

func TestDispatcherWithoutChannel(t *testing.T) {
	d := &Dispatcher{}
	err := d.Send(context.Background(), Message{To: "ana@school.test"})
	assert.True(t, errors.Is(err, ErrNoChannel))

	err = (&Dispatcher{Email: Nop{}}).Send(context.Background(), Message{To: ""})
	assert.True(t, errors.Is(err, ErrNoChannel))
}

type stubSender struct {
	params *bot.SendMessageParams
	err    error
}

func (s *stubSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.params = params
	return &models.Message{}, s.err
}

func TestTelegramNotifierParsesChatID(t *testing.T) {
	sender := &stubSender{}
	n := &TelegramNotifier{client: sender}

	require.NoError(t, n.Send(context.Background(), Message{To: "-100200", Subject: "Substitution", Text: "8A math"}))
	assert.Equal(t, int64(-100200), sender.params.ChatID)
	assert.Equal(t, "Substitution\n\n8A math", sender.params.Text)

	require.NoError(t, n.Send(context.Background(), Message{To: "@staffroom", Text: "x"}))
	assert.Equal(t, "@staffroom", sender.params.ChatID)
}

func TestTelegramNotifierWrapsError(t *testing.T) {
	n := &TelegramNotifier{client: &stubSender{err: errors.New("forbidden")}}
	err := n.Send(context.Background(), Message{To: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestSendgridNotifierBuildsRequest(t *testing.T) {
	n := NewSendgridNotifier("key", "Timetable", "timetable@school.test")
	var captured rest.Request
	n.api = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	require.NoError(t, n.Send(context.Background(), Message{To: "ana@school.test", Name: "Ana", Subject: "Cover", Text: "Period 3"}))
	assert.Equal(t, rest.Method(http.MethodPost), captured.Method)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	assert.Contains(t, string(captured.Body), "ana@school.test")
	assert.Contains(t, string(captured.Body), "Period 3")
}

func TestSendgridNotifierRejectsErrorStatus(t *testing.T) {
	n := NewSendgridNotifier("key", "Timetable", "timetable@school.test")
	n.api = func(req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized}, nil
	}
	assert.Error(t, n.Send(context.Background(), Message{To: "ana@school.test"}))
}
