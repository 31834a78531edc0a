package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Deliverer hands a rendered email to a transport (SMTP in
// production, a recorder in tests).
type Deliverer interface {
	Deliver(to, subject, htmlBody string) error
}

// StartEmailConsumer connects to RabbitMQ, declares the auth.email
// queue (durable), and delivers each message through d. It runs a
// reconnect loop with exponential backoff and keeps running across
// broker restarts; poison messages are rejected without requeue so
// the worker never spins on one bad payload.
func StartEmailConsumer(d Deliverer) {
	url := BrokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("email-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeEmails(conn, d); err != nil {
			log.Printf("email-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeEmails(conn *amqp.Connection, d Deliverer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("email-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(EmailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for del := range msgs {
		if err := handleEmail(del.Body, d); err != nil {
			log.Printf("email-consumer: handle message failed: %v", err)
			_ = del.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = del.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleEmail(body []byte, d Deliverer) error {
	var msg EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.To == "" {
		return errors.New("empty recipient")
	}
	if err := d.Deliver(msg.To, msg.Subject, msg.HTMLBody); err != nil {
		return fmt.Errorf("deliver to %s: %w", msg.To, err)
	}
	return nil
}
