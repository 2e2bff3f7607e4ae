package mq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"wht-store-pay/internal/dal"
)

var ErrBrokerUnavailable = errors.New("rabbitmq channel unavailable")

// Publisher sends events to a topic exchange, using the topic as routing key.
type Publisher struct {
	Exchange string
	// Channel defaults to dal.GetChannel.
	Channel func() *amqp.Channel
}

func NewPublisher(exchange string) *Publisher {
	return &Publisher{Exchange: exchange, Channel: dal.GetChannel}
}

func (p *Publisher) Publish(topic string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	ch := p.Channel()
	if ch == nil {
		return ErrBrokerUnavailable
	}
	return ch.Publish(
		p.Exchange,
		topic,
		false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Body:         b,
		},
	)
}
