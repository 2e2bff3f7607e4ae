package event

import (
	"github.com/sirupsen/logrus"

	"wht-store-pay/internal/dto"
)

type Publisher interface {
	Publish(topic string, msg any) error
}

// NopPublisher drops every message; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) error { return nil }

// PublishPayment 发布支付事件，失败只记录日志不影响主流程
func PublishPayment(p Publisher, l *logrus.Logger, topic string, msg *dto.PaymentEventMQ) {
	if p == nil || msg == nil {
		return
	}
	if err := p.Publish(topic, msg); err != nil && l != nil {
		l.WithFields(logrus.Fields{
			"topic":      topic,
			"key":        msg.CorrelationKey,
			"payment_id": msg.PaymentID,
		}).Warnf("publish payment event failed: %v", err)
	}
}
