package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/homeworkbot/core/config"
)

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return dialErr()
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherGivesUp(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})
	var transient, permanent atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "", func() error {
		transient.Add(1)
		return dialErr()
	}))
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "", func() error {
		permanent.Add(1)
		return errors.New("bad request: message is too long (400)")
	}))
	d.Close()
	assert.Equal(t, int32(2), transient.Load())
	assert.Equal(t, int32(1), permanent.Load())
	assert.Equal(t, uint64(2), d.ErrorCount())
}

func TestEnqueueAfterCloseAndWhenFull(t *testing.T) {
	block := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))
	assert.Equal(t, 1, d.Pending())
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func() error { return nil }), ErrQueueFull)

	close(block)
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "d", "", func() error { return nil }), ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), "e", "", nil))
}

func TestClassifyAndRedact(t *testing.T) {
	assert.Equal(t, "dial", classifyError(dialErr()))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: chat not found (400)")))
	assert.Equal(t, "flood", classifyError(errors.New("telegram: too many requests (429)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))

	err := errors.New(`Post "https://api.telegram.org/bot123:abc-DEF/sendMessage": EOF`)
	assert.NotContains(t, redact(err), "123:abc")
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(coreconfig.SenderConfig{QueueSize: 8, Workers: 2, MaxRetries: 1, RetryBackoffMS: 250})
	assert.Equal(t, Options{QueueSize: 8, Workers: 2, MaxRetries: 1, RetryBackoff: 250 * time.Millisecond}, opts)
}
