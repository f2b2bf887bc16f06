package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"GME": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"GME":3}`, string(b))

	b, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	_, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestJSONOnlyHook(t *testing.T) {
	h := JSONOnly()
	_, _, err := h.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(`{"ok":true}`))
	assert.NoError(t, err)

	_, _, err = h.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("not json"))
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_VALIDATION", hookErr.Code)
}

func TestTraceHook(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, err := TraceHook().BeforeHandle(context.Background(), "t", msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
	assert.Empty(t, TraceIDFrom(context.Background()))
}

func TestNewRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
	_, err = NewConsumer()
	assert.Error(t, err)
}
