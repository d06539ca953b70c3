package queue

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

const sendQueueName = "campaign_sends"

// Publisher announces freshly queued message ids. The database row is the
// source of truth either way; the broker feed exists for the external
// cloud-queue execution path, whose consumer lives outside this service.
type Publisher interface {
	PublishMessageIDs(campaignID int, messageIDs []int) error
	Close() error
}

// SendJob is the wire shape of one queued send.
type SendJob struct {
	MessageID  int `json:"message_id"`
	CampaignID int `json:"campaign_id"`
}

// AMQPPublisher publishes send jobs to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		sendQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishMessageIDs(campaignID int, messageIDs []int) error {
	for _, id := range messageIDs {
		body, err := json.Marshal(SendJob{MessageID: id, CampaignID: campaignID})
		if err != nil {
			return err
		}
		err = p.ch.Publish(
			"",
			sendQueueName,
			false,
			false,
			amqp.Publishing{
				MessageId:   uuid.NewString(),
				ContentType: "application/json",
				Body:        body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish message %d: %w", id, err)
		}
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		log.Println("⚠️ failed to close rabbitmq channel:", err)
	}
	return p.conn.Close()
}

// NoopPublisher is used when no broker is configured; the poll loop alone
// drains the queue.
type NoopPublisher struct{}

func (NoopPublisher) PublishMessageIDs(int, []int) error { return nil }
func (NoopPublisher) Close() error                       { return nil }

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
