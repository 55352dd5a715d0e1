// Package bridge carries messages between the host and the frame document.
//
// It behaves like window.postMessage: posting never blocks, payloads are
// copied, delivery is FIFO per direction, and each receiving endpoint drops
// messages whose origin it does not trust.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// ErrClosed is returned when posting to a closed endpoint
var ErrClosed = errors.New("message channel closed")

// Endpoint is one side of a host/frame channel
type Endpoint struct {
	name   string
	origin string
	accept string
	peer   *Endpoint

	mu     sync.Mutex
	queue  []entities.Message
	signal chan struct{}
	out    chan entities.Message

	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
	logger    *slog.Logger
}

// Pipe connects a host endpoint and a frame endpoint. Both sides trust
// only messages carrying origin, the same-origin rule for srcdoc frames.
func Pipe(origin string, logger *slog.Logger) (host *Endpoint, frame *Endpoint) {
	if logger == nil {
		logger = slog.Default()
	}

	host = newEndpoint("host", origin, logger)
	frame = newEndpoint("frame", origin, logger)
	host.peer = frame
	frame.peer = host

	go host.pump()
	go frame.pump()
	return host, frame
}

func newEndpoint(name, origin string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:   name,
		origin: origin,
		accept: origin,
		signal: make(chan struct{}, 1),
		out:    make(chan entities.Message),
		done:   make(chan struct{}),
		logger: logger.With("service", "bridge", "endpoint", name),
	}
}

// Post sends msg to the peer, stamped with this endpoint's origin
func (e *Endpoint) Post(msg entities.Message) error {
	clone, err := copyMessage(msg)
	if err != nil {
		return err
	}
	clone.Origin = e.origin
	return e.peer.enqueue(clone)
}

// Inject delivers msg to this endpoint as if another window had posted it.
// The origin on msg is kept as given.
func (e *Endpoint) Inject(msg entities.Message) error {
	clone, err := copyMessage(msg)
	if err != nil {
		return err
	}
	clone.Origin = msg.Origin
	return e.enqueue(clone)
}

// C delivers trusted inbound messages in order. It is closed on Close.
func (e *Endpoint) C() <-chan entities.Message {
	return e.out
}

// Dropped returns how many inbound messages failed the origin check
func (e *Endpoint) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops delivery on this endpoint and its peer
func (e *Endpoint) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	if e.peer != nil {
		e.peer.closeOnce.Do(func() { close(e.peer.done) })
	}
}

func (e *Endpoint) enqueue(msg entities.Message) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	e.mu.Lock()
	e.queue = append(e.queue, msg)
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
	return nil
}

func (e *Endpoint) next() (entities.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return entities.Message{}, false
	}
	msg := e.queue[0]
	e.queue[0] = entities.Message{}
	e.queue = e.queue[1:]
	return msg, true
}

func (e *Endpoint) pump() {
	defer close(e.out)

	for {
		select {
		case <-e.done:
			return
		case <-e.signal:
		}

		for {
			msg, ok := e.next()
			if !ok {
				break
			}

			if msg.Origin != e.accept {
				e.dropped.Add(1)
				e.logger.Debug("dropping message from untrusted origin",
					"type", msg.Type,
					"origin", msg.Origin)
				continue
			}

			select {
			case e.out <- msg:
			case <-e.done:
				return
			}
		}
	}
}

// copyMessage round-trips msg through JSON so no memory is shared between
// sender and receiver
func copyMessage(msg entities.Message) (entities.Message, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return entities.Message{}, fmt.Errorf("encoding %s message: %w", msg.Type, err)
	}

	var clone entities.Message
	if err := json.Unmarshal(data, &clone); err != nil {
		return entities.Message{}, fmt.Errorf("decoding %s message: %w", msg.Type, err)
	}
	return clone, nil
}
