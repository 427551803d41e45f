// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/msg"
	"github.com/tarancss/zecdev/lib/msg/types"
)

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	log  *zap.Logger

	mu sync.Mutex // guards ch
	ch *amqp.Channel

	done      chan struct{} // closed by Close, stops the consumers
	closeOnce sync.Once
}

var _ msg.Broker = (*Amqp)(nil)

// New instantiates a new amqp broker.
func New(uri string, log *zap.Logger) (*Amqp, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	log.Info("connected to message broker")

	return &Amqp{conn: conn, log: log, done: make(chan struct{})}, nil
}

// Setup declares the faucet events exchange ("fe"), a durable topic exchange.
func (r *Amqp) Setup() error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(msg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.closeOnce.Do(func() { close(r.done) })

	r.mu.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			r.log.Warn("closing amqp channel", zap.Error(err))
		}

		r.ch = nil
	}
	r.mu.Unlock()

	return r.conn.Close()
}

func (r *Amqp) channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil {
		ch, err := r.conn.Channel()
		if err != nil {
			return nil, err
		}

		r.ch = ch
	}

	return r.ch, nil
}

// SendEvent publishes an event to the "fe" exchange.
func (r *Amqp) SendEvent(e types.Event) error {
	jsonDoc, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ch, err := r.channel()
	if err != nil {
		return err
	}

	m := amqp.Publishing{
		Headers:     amqp.Table{"x-event-kind": e.Kind},
		Body:        jsonDoc,
		ContentType: "application/json",
		Timestamp:   e.Timestamp,
	}

	if err = ch.Publish(msg.Exchange, e.RoutingKey(), false, false, m); err != nil {
		r.log.Error("sending event to message broker", zap.String("kind", e.Kind), zap.Error(err))

		return err
	}

	return nil
}

// GetEvents declares queue, binds it to every faucet event and consumes from it.
func (r *Amqp) GetEvents(queue string) (<-chan types.Event, <-chan error, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, nil, err
	}

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, nil, err
	}

	if err = ch.QueueBind(queue, "faucet.#", msg.Exchange, false, nil); err != nil {
		return nil, nil, err
	}

	msgs, err := ch.Consume(queue, "zecdev-"+queue, false, false, false, false, nil)
	if err != nil {
		return nil, nil, err
	}

	eves, errs := deliver(msgs, r.done)

	return eves, errs, nil
}

// deliver decodes msgs into events until msgs is closed or done is. A pending send is dropped when done closes, so
// a reader that went away never blocks the consumer.
func deliver(msgs <-chan amqp.Delivery, done <-chan struct{}) (<-chan types.Event, <-chan error) {
	eves := make(chan types.Event)
	errs := make(chan error)

	go func() {
		defer close(eves)
		defer close(errs)

		for {
			var m amqp.Delivery

			select {
			case <-done:
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}

				m = d
			}

			var e types.Event
			if err := json.Unmarshal(m.Body, &e); err != nil {
				_ = m.Nack(false, false)

				select {
				case errs <- err:
				case <-done:
					return
				}

				continue
			}

			select {
			case eves <- e:
				_ = m.Ack(false)
			case <-done:
				_ = m.Nack(false, true) // back to the queue for the next consumer

				return
			}
		}
	}()

	return eves, errs
}
