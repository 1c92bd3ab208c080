package bus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize es la capacidad de la cola de eventos pendientes.
const DefaultQueueSize = 1024

// AsyncPublisher publica en segundo plano ("dispara y olvida").
// Un único worker vacía la cola en orden FIFO, así los eventos de una misma
// tarea salen en el orden en que se emitieron.
// Los errores del publisher se registran y nunca llegan al llamante.
type AsyncPublisher struct {
	publisher EventPublisher
	timeout   time.Duration
	log       *zap.Logger

	queue   chan interface{}
	pending sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
}

// NewAsyncPublisher arranca el worker. queueSize <= 0 usa DefaultQueueSize.
func NewAsyncPublisher(publisher EventPublisher, timeout time.Duration, queueSize int, log *zap.Logger) *AsyncPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	a := &AsyncPublisher{
		publisher: publisher,
		timeout:   timeout,
		log:       log,
		queue:     make(chan interface{}, queueSize),
		done:      make(chan struct{}),
	}
	go a.run()
	return a
}

// Dispatch encola el evento sin bloquear. Si la cola está llena el evento se descarta.
func (a *AsyncPublisher) Dispatch(event interface{}) {
	if a == nil || a.publisher == nil {
		return
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.Warn("Event publisher closed, event skipped", eventFields(event)...)
		return
	}

	a.pending.Add(1)
	select {
	case a.queue <- event:
	default:
		a.pending.Done()
		a.log.Warn("Event queue full, event skipped", eventFields(event)...)
	}
}

// Wait bloquea hasta que la cola está vacía y el último envío ha terminado.
func (a *AsyncPublisher) Wait() {
	if a == nil {
		return
	}
	a.pending.Wait()
}

// Close deja de aceptar eventos, vacía la cola y para el worker.
func (a *AsyncPublisher) Close() {
	if a == nil {
		return
	}

	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *AsyncPublisher) run() {
	defer close(a.done)
	for event := range a.queue {
		a.publishOne(event)
		a.pending.Done()
	}
}

func (a *AsyncPublisher) publishOne(event interface{}) {
	fields := eventFields(event)
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Event publisher panicked, event skipped", append(fields, zap.Any("panic", r))...)
		}
	}()

	// Usamos context.Background(): el contexto de la petición puede estar ya cancelado.
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.publisher.Publish(ctx, event); err != nil {
		a.log.Warn("Event sink not available, event skipped", append(fields, zap.Error(err))...)
		return
	}
	a.log.Debug("Event published", fields...)
}

func eventFields(event interface{}) []zap.Field {
	fields := []zap.Field{zap.Any("event", event)}
	if keyer, ok := event.(Keyer); ok {
		fields = append(fields, zap.String("key", keyer.PartitionKey()))
	}
	return fields
}
