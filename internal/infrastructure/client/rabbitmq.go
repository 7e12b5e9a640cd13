package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/St1cky1/taskflow/internal/entity"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditQueue - очередь событий аудита задач
const AuditQueue = "task_audit_logs"

type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	// amqp.Channel не рассчитан на конкурентную публикацию
	mu sync.Mutex
}

func NewRabbitMQClient(url string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Объявляем очередь для аудита
	queue, err := channel.QueueDeclare(
		AuditQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: channel,
		queue:   queue,
	}, nil
}

func (c *RabbitMQClient) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(
		ctx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Сообщения сохраняются на диск
		},
	)
	if err != nil {
		return err
	}

	log.Printf("Отправлено сообщение в RabbitMQ: %s для задачи ID=%s", message.Action, message.EntityID)
	return nil
}

func (c *RabbitMQClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
