package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"crowdfund-api/internal/model"
)

type DonationPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewDonationPublisher(conn *amqp.Connection, queueName string) *DonationPublisher {
	return &DonationPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *DonationPublisher) Publish(ctx context.Context, donation model.Donation) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(donation)
	if err != nil {
		return fmt.Errorf("marshal donation payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Type:         "donation.pledged",
		},
	); err != nil {
		return fmt.Errorf("publish donation failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return q, nil
}
