package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	msgs chan kafka.Message
	errs chan error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case err := <-r.errs:
		return kafka.Message{}, err
	case msg := <-r.msgs:
		return msg, nil
	}
}

func (r *fakeReader) Config() kafka.ReaderConfig {
	return kafka.ReaderConfig{Topic: "tasks-events", Brokers: []string{"localhost:9092"}}
}

type collectingHandler struct {
	mu   sync.Mutex
	keys []string
}

func (h *collectingHandler) HandleMessage(ctx context.Context, key string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, key)
}

func (h *collectingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keys)
}

func TestConsumerAdapter_DeliversMessagesUntilCancelled(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 2), errs: make(chan error, 1)}
	handler := &collectingHandler{}
	adapter := NewConsumerAdapter(reader, handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	adapter.Start(ctx)

	reader.errs <- errors.New("transient read error")
	reader.msgs <- kafka.Message{Key: []byte("k1")}
	reader.msgs <- kafka.Message{Key: []byte("k2")}

	require.Eventually(t, func() bool { return handler.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-adapter.Done():
	case <-time.After(time.Second):
		t.Fatal("el consumidor no se detuvo tras cancelar el contexto")
	}
	assert.ElementsMatch(t, []string{"k1", "k2"}, handler.keys)
}
