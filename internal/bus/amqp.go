package bus

import (
	"github.com/rs/zerolog/log"

	"matchengine/internal/rabbitmq"
)

// AMQPMirror forwards bus events to a durable topic exchange so dashboards
// and other out-of-process consumers can bind without touching Redis. The
// routing key is the logical channel name. Best-effort: a failed mirror is
// logged and the primary publish stands.
type AMQPMirror struct {
	client   rabbitmq.Client
	exchange string
}

// NewAMQPMirror declares the exchange and returns the mirror.
func NewAMQPMirror(client rabbitmq.Client, exchange string) (*AMQPMirror, error) {
	if err := client.DeclareExchange(exchange, "topic"); err != nil {
		return nil, err
	}
	return &AMQPMirror{client: client, exchange: exchange}, nil
}

// Mirror implements the Mirror interface.
func (m *AMQPMirror) Mirror(channel string, body []byte) {
	if err := m.client.Publish(m.exchange, channel, body, nil); err != nil {
		log.Error().
			Err(err).
			Str("exchange", m.exchange).
			Str("channel", channel).
			Msg("Failed to mirror event to RabbitMQ")
	}
}
