package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/IBM/sarama"
)

const (
	TopicPaymentVerified      = "payment.verified"
	TopicPaymentRejected      = "payment.rejected"
	TopicEntitlementActivated = "entitlement.activated"
	TopicEntitlementSynced    = "entitlement.synced"
)

// EntitlementEvent is the typed notification published whenever an
// entitlement or its source payment changes. Interested readers
// subscribe to these topics instead of polling a shared counter.
type EntitlementEvent struct {
	PaymentID     string                   `json:"payment_id,omitempty"`
	EntitlementID string                   `json:"entitlement_id,omitempty"`
	UserID        string                   `json:"user_id"`
	UserEmail     string                   `json:"user_email,omitempty"`
	PlanName      string                   `json:"plan_name,omitempty"`
	Amount        int64                    `json:"amount,omitempty"`
	PaymentStatus domain.PaymentStatus     `json:"payment_status,omitempty"`
	Status        domain.EntitlementStatus `json:"status,omitempty"`
	ExpiryDate    *time.Time               `json:"expiry_date,omitempty"`
	Timestamp     time.Time                `json:"timestamp"`
}

// EntitlementProducer publishes entitlement lifecycle events
type EntitlementProducer interface {
	PublishPaymentVerified(ctx context.Context, payment domain.PaymentRecord) error
	PublishPaymentRejected(ctx context.Context, payment domain.PaymentRecord) error
	PublishEntitlementActivated(ctx context.Context, entitlement domain.EntitlementRecord) error
	PublishEntitlementSynced(ctx context.Context, entitlement domain.EntitlementRecord) error
	Close() error
}

type kafkaEntitlementProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaEntitlementProducer creates a new entitlement event producer
func NewKafkaEntitlementProducer(producer sarama.SyncProducer, log *logger.Logger) EntitlementProducer {
	return &kafkaEntitlementProducer{
		producer: producer,
		log:      log,
	}
}

// PublishPaymentVerified publishes a payment verification event
func (p *kafkaEntitlementProducer) PublishPaymentVerified(ctx context.Context, payment domain.PaymentRecord) error {
	return p.publishEvent(TopicPaymentVerified, payment.UserID, EntitlementEvent{
		PaymentID:     payment.ID.String(),
		UserID:        payment.UserID,
		UserEmail:     payment.UserEmail,
		PlanName:      payment.PlanName,
		Amount:        payment.Amount,
		PaymentStatus: payment.Status,
		Timestamp:     time.Now(),
	})
}

// PublishPaymentRejected publishes a payment rejection event
func (p *kafkaEntitlementProducer) PublishPaymentRejected(ctx context.Context, payment domain.PaymentRecord) error {
	return p.publishEvent(TopicPaymentRejected, payment.UserID, EntitlementEvent{
		PaymentID:     payment.ID.String(),
		UserID:        payment.UserID,
		UserEmail:     payment.UserEmail,
		PlanName:      payment.PlanName,
		Amount:        payment.Amount,
		PaymentStatus: payment.Status,
		Timestamp:     time.Now(),
	})
}

// PublishEntitlementActivated publishes an activation event
func (p *kafkaEntitlementProducer) PublishEntitlementActivated(ctx context.Context, entitlement domain.EntitlementRecord) error {
	expiry := entitlement.ExpiryDate
	return p.publishEvent(TopicEntitlementActivated, entitlement.UserID, EntitlementEvent{
		EntitlementID: entitlement.ID.String(),
		PaymentID:     entitlement.SourcePaymentID.String(),
		UserID:        entitlement.UserID,
		UserEmail:     entitlement.UserEmail,
		PlanName:      entitlement.PlanName,
		Amount:        entitlement.Amount,
		Status:        entitlement.Status,
		ExpiryDate:    &expiry,
		Timestamp:     time.Now(),
	})
}

// PublishEntitlementSynced publishes a claims synchronization event
func (p *kafkaEntitlementProducer) PublishEntitlementSynced(ctx context.Context, entitlement domain.EntitlementRecord) error {
	expiry := entitlement.ExpiryDate
	return p.publishEvent(TopicEntitlementSynced, entitlement.UserID, EntitlementEvent{
		EntitlementID: entitlement.ID.String(),
		UserID:        entitlement.UserID,
		UserEmail:     entitlement.UserEmail,
		PlanName:      entitlement.PlanName,
		Status:        entitlement.Status,
		ExpiryDate:    &expiry,
		Timestamp:     time.Now(),
	})
}

// publishEvent marshals and sends one event. Keyed by user so every
// event for a subject lands in the same partition, preserving order.
func (p *kafkaEntitlementProducer) publishEvent(topic, key string, event EntitlementEvent) error {
	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal entitlement event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish entitlement event: %w", err)
	}

	p.log.Info("Published entitlement event to topic %s: partition=%d offset=%d",
		topic, partition, offset)

	return nil
}

// Close closes the producer
func (p *kafkaEntitlementProducer) Close() error {
	return p.producer.Close()
}
