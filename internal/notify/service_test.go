package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type stubTokens struct {
	tokens []string
	err    error
}

func (s stubTokens) DeviceTokens(context.Context, []uuid.UUID) ([]string, error) {
	return s.tokens, s.err
}

type stubEmails struct {
	addrs []string
}

func (s stubEmails) Emails(context.Context, []uuid.UUID) ([]string, error) {
	return s.addrs, nil
}

type recordingPush struct {
	sent    []string
	failFor string
}

func (p *recordingPush) Send(deviceToken string, _ Payload) error {
	if deviceToken == p.failFor {
		return errors.New("push rejected")
	}
	p.sent = append(p.sent, deviceToken)
	return nil
}

func TestNotifyPushesToEveryDevice(t *testing.T) {
	push := &recordingPush{}
	svc := NewService(stubTokens{tokens: []string{"tok-1", "tok-2"}}, stubEmails{}, push, nil)

	err := svc.Notify(context.Background(), []uuid.UUID{uuid.New()}, Payload{Title: "alert"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1", "tok-2"}, push.sent)
}

func TestNotifyContinuesPastFailedTarget(t *testing.T) {
	push := &recordingPush{failFor: "tok-1"}
	svc := NewService(stubTokens{tokens: []string{"tok-1", "tok-2"}}, stubEmails{}, push, nil)

	err := svc.Notify(context.Background(), []uuid.UUID{uuid.New()}, Payload{Title: "alert"})
	require.NoError(t, err, "a single failed target does not fail the fan-out")
	assert.Equal(t, []string{"tok-2"}, push.sent)
}

func TestNotifyTokenLookupFailure(t *testing.T) {
	push := &recordingPush{}
	svc := NewService(stubTokens{err: errors.New("db down")}, stubEmails{}, push, nil)

	err := svc.Notify(context.Background(), []uuid.UUID{uuid.New()}, Payload{Title: "alert"})
	assert.Error(t, err)
	assert.Empty(t, push.sent)
}

func TestNotifyWithNoChannels(t *testing.T) {
	svc := NewService(stubTokens{}, stubEmails{}, nil, nil)
	assert.NoError(t, svc.Notify(context.Background(), []uuid.UUID{uuid.New()}, Payload{}))
}

func TestNotifyWithNoRecipients(t *testing.T) {
	push := &recordingPush{}
	svc := NewService(stubTokens{tokens: []string{"tok-1"}}, stubEmails{}, push, nil)

	require.NoError(t, svc.Notify(context.Background(), nil, Payload{}))
	assert.Empty(t, push.sent, "empty recipient set short-circuits before any lookup")
}
