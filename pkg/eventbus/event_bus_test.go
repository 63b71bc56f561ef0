package eventbus

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sprintboard/pkg/logging"
)

type committed struct {
	rows int
}

type discarded struct{}

func TestBus_PublishLogsWhenUnhandled(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.WarnLevel)

	b := New(log)
	require.NoError(t, b.Subscribe(func(e *committed) {
		t.Error("should not be called")
	}))
	b.Publish(&discarded{})

	assert.Contains(t, buf.String(), "eventbus.Publish")
	assert.Contains(t, buf.String(), "no matching subscribers")
}

func TestBus_Publish(t *testing.T) {
	b := New(logging.ConsoleLogger(logrus.WarnLevel))
	var got int
	require.NoError(t, b.Subscribe(func(e *committed) { got = e.rows }))
	b.Publish(&committed{rows: 4})
	assert.Equal(t, 4, got)
}

func TestBus_PublishE(t *testing.T) {
	boom := errors.New("boom")
	b := New(nil)
	require.NoError(t, b.Subscribe(func(*committed) error { return boom }))
	require.NoError(t, b.Subscribe(func(*committed) error { return nil }))
	require.NoError(t, b.Subscribe(func(*committed) { panic("bad handler") }))
	require.NoError(t, b.Subscribe(func(*committed) (int, error) { return 0, nil }))

	err := b.PublishE(&committed{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrInvalidHandlerReturn)
	assert.Contains(t, err.Error(), "panicked")

	require.ErrorIs(t, b.PublishE(&discarded{}), ErrNoSubscribers)
}

func TestBus_SubscribeRejectsNonFunc(t *testing.T) {
	b := New(nil)
	require.ErrorIs(t, b.Subscribe("handler"), ErrNotAFunc)
	assert.Zero(t, b.SubscribersCount())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(nil)
	called := false
	handler := func(*committed) { called = true }
	require.NoError(t, b.Subscribe(handler))
	require.Equal(t, 1, b.SubscribersCount())

	b.Unsubscribe(handler)
	assert.Zero(t, b.SubscribersCount())
	b.Publish(&committed{})
	assert.False(t, called)
}

func TestBus_NilArgument(t *testing.T) {
	b := New(nil)
	var got *committed = &committed{}
	require.NoError(t, b.Subscribe(func(ctx context.Context, e *committed) { got = e }))
	require.NoError(t, b.PublishE(context.Background(), nil))
	assert.Nil(t, got)
}

func TestMatchSignature(t *testing.T) {
	assert.True(t, MatchSignature(func(*committed) {}, []any{&committed{}}))
	assert.False(t, MatchSignature(func(*committed) {}, []any{&discarded{}}))
	assert.False(t, MatchSignature(func(*committed) {}, []any{}))
	assert.False(t, MatchSignature(func(*committed) {}, []any{&committed{}, &committed{}}))
	assert.True(t, MatchSignature(func(context.Context) {}, []any{context.Background()}))
	assert.False(t, MatchSignature(func(committed) {}, []any{nil}))
	assert.False(t, MatchSignature("nope", nil))
}
