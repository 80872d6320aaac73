package eventbus

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type args struct {
	data interface{}
}

func bufferedLogger(level logrus.Level) (*logrus.Entry, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return logrus.NewEntry(log), buf
}

func TestPublisher_NoMatchingSubscriber(t *testing.T) {
	type args2 struct {
		data interface{}
	}
	log, buf := bufferedLogger(logrus.DebugLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *args) {
		t.Error("should not be called")
	})
	publisher.Publish(&args2{data: "test"})

	require.Contains(t, buf.String(), "eventbus.Publish: no matching subscribers")
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(nil)
	var data interface{}
	publisher.Subscribe(func(e *args) {
		data = e.data
	})
	publisher.Publish(&args{data: "test"})
	require.Equal(t, "test", data)
}

func TestPublisher_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *args) { panic("boom") })
	called := false
	publisher.Subscribe(func(e *args) { called = true })

	publisher.Publish(&args{})
	require.True(t, called)
	require.Contains(t, buf.String(), "panicked")
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	publisher := NewEventPublisher(nil)
	first := func(e *args) {}
	second := func(ctx context.Context, e *args) {}
	publisher.Subscribe(first)
	publisher.Subscribe(second)
	require.Equal(t, 2, publisher.SubscribersCount())

	publisher.Unsubscribe(first)
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Clear()
	require.Zero(t, publisher.SubscribersCount())
}

func TestMatchSignature(t *testing.T) {
	type other struct{}

	require.True(t, MatchSignature(func(e *args) {}, []interface{}{&args{}}))
	require.False(t, MatchSignature(func(e *args) {}, []interface{}{&other{}}))
	require.False(t, MatchSignature(func(e *args) {}, []interface{}{}))
	require.False(t, MatchSignature(func(e *args) {}, []interface{}{&args{}, &args{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}))
	require.True(t, MatchSignature(func(e *args) {}, []interface{}{nil}))
	require.False(t, MatchSignature("not a func", []interface{}{}))
}
