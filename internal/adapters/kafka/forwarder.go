// Package kafka forwards queue lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jose-valero/party-queue-bot/internal/domain/events"
)

// MessageWriter is the part of *kafka.Writer the forwarder uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	Buffer  int
}

// NewWriter builds a synchronous writer keyed by queue handle.
func NewWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Envelope is the JSON value written for every event.
type Envelope struct {
	Event   string    `json:"event"`
	GuildID string    `json:"guild_id"`
	Handle  string    `json:"handle"`
	At      time.Time `json:"at"`
	Data    any       `json:"data"`
}

// Forwarder subscribes to the bus and writes events from a background loop
// so publishers never block on the broker.
type Forwarder struct {
	w       MessageWriter
	bus     *events.Bus
	log     *slog.Logger
	ch      chan kafka.Message
	cancels []func()
	done    chan struct{}
	once    sync.Once
}

func NewForwarder(w MessageWriter, bus *events.Bus, buffer int, log *slog.Logger) *Forwarder {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Forwarder{
		w:    w,
		bus:  bus,
		log:  log.With("component", "kafka"),
		ch:   make(chan kafka.Message, buffer),
		done: make(chan struct{}),
	}
}

// Start subscribes to every lifecycle event and starts the write loop.
func (f *Forwarder) Start() {
	f.cancels = append(f.cancels,
		events.Subscribe(f.bus, func(ev events.QueueCreated) { f.enqueue(ev, ev.Meta) }),
		events.Subscribe(f.bus, func(ev events.MemberJoined) { f.enqueue(ev, ev.Meta) }),
		events.Subscribe(f.bus, func(ev events.MemberLeft) { f.enqueue(ev, ev.Meta) }),
		events.Subscribe(f.bus, func(ev events.QueueFilled) { f.enqueue(ev, ev.Meta) }),
		events.Subscribe(f.bus, func(ev events.QueueExpired) { f.enqueue(ev, ev.Meta) }),
		events.Subscribe(f.bus, func(ev events.QueueReset) { f.enqueue(ev, ev.Meta) }),
		events.Subscribe(f.bus, func(ev events.QueueClosed) { f.enqueue(ev, ev.Meta) }),
	)
	go f.loop()
}

func (f *Forwarder) enqueue(ev events.Lifecycle, meta events.Meta) {
	value, err := json.Marshal(Envelope{
		Event:   ev.EventName(),
		GuildID: meta.GuildID,
		Handle:  meta.Handle,
		At:      meta.At,
		Data:    ev,
	})
	if err != nil {
		f.log.Error("encode event", "event", ev.EventName(), "err", err)
		return
	}
	msg := kafka.Message{Key: []byte(meta.Handle), Value: value}
	select {
	case f.ch <- msg:
	default:
		f.log.Warn("event buffer full, dropping", "event", ev.EventName(), "handle", meta.Handle)
	}
}

func (f *Forwarder) loop() {
	defer close(f.done)
	for msg := range f.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := f.w.WriteMessages(ctx, msg); err != nil {
			f.log.Warn("write event", "key", string(msg.Key), "err", err)
		}
		cancel()
	}
}

// Close unsubscribes, drains the buffer and closes the writer.
func (f *Forwarder) Close() error {
	var err error
	f.once.Do(func() {
		for _, c := range f.cancels {
			c()
		}
		close(f.ch)
		<-f.done
		err = f.w.Close()
	})
	return err
}
