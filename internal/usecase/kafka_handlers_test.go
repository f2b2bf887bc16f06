package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/repository"
)

func TestKafkaDocumentsHandler(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingSink{}, &recordingSink{}
	h := NewKafkaDocumentsHandler("tickerpulse.documents", nil, nil, a, b)
	assert.Equal(t, "tickerpulse.documents", h.Topic())

	tests := []struct {
		name    string
		payload string
		wantErr bool
		stored  int
	}{
		{"valid document", `{"id":"t3_1","text":"GME","score":10,"comments":[{"body":"AMC","score":9}]}`, false, 1},
		{"undecodable is dropped", `{"id":`, false, 1},
		{"missing id is dropped", `{"text":"GME"}`, false, 1},
		{"second document", `{"id":"t3_2","text":"TSLA"}`, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Handle(ctx, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, a.docs, tt.stored)
			assert.Len(t, b.docs, tt.stored)
		})
	}
	require.Len(t, a.docs[0].Comments, 1)
	assert.Equal(t, "AMC", a.docs[0].Comments[0].Body)
}

func TestKafkaDocumentsHandlerSinkErrorIsRetried(t *testing.T) {
	h := NewKafkaDocumentsHandler("docs", nil, nil, &recordingSink{err: errBoom})
	err := h.Handle(context.Background(), []byte(`{"id":"t3_1"}`))
	assert.ErrorIs(t, err, errBoom)
}

func TestKafkaSnapshotsHandler(t *testing.T) {
	ctx := context.Background()
	board := repository.NewSnapshotBoard()
	h := NewKafkaSnapshotsHandler("tickerpulse.snapshots", board, nil, nil)
	assert.Equal(t, "tickerpulse.snapshots", h.Topic())

	require.NoError(t, h.Handle(ctx, []byte(`not json`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"price":1}`)))
	assert.Zero(t, board.Symbols())

	require.NoError(t, h.Handle(ctx, []byte(
		`{"symbol":"GME","timestamp":"2021-02-01T14:31:00Z","price":41,"total_volume":1200,"call_volume":550,"put_volume":290}`)))
	require.NoError(t, h.Handle(ctx, []byte(
		`{"symbol":"GME","timestamp":"2021-02-01T14:30:00Z","price":40,"total_volume":1000,"call_volume":500,"put_volume":300}`)))

	snap, err := board.Latest(ctx, "GME")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.NotNil(t, snap.Price)
	assert.Equal(t, 41.0, *snap.Price)
	assert.True(t, snap.Timestamp.Equal(time.Date(2021, 2, 1, 14, 31, 0, 0, time.UTC)))
}
