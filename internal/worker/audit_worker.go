package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/infrastructure/client"
	"github.com/St1cky1/taskflow/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

// AuditWorker читает события аудита из RabbitMQ и сохраняет их в task_audit
type AuditWorker struct {
	url       string
	auditRepo repository.ITaskAuditRepository
}

func NewAuditWorker(url string, auditRepo repository.ITaskAuditRepository) *AuditWorker {
	return &AuditWorker{
		url:       url,
		auditRepo: auditRepo,
	}
}

// Start блокируется до отмены ctx, при обрыве соединения переподключается
func (w *AuditWorker) Start(ctx context.Context) {
	log.Println("🔄 Audit Worker: подключаемся к RabbitMQ...")

	for {
		err := w.run(ctx)
		if ctx.Err() != nil {
			log.Println("🛑 Audit Worker остановлен")
			return
		}

		log.Printf("❌ Audit Worker ошибка: %v, переподключение через %s...", err, reconnectDelay)
		select {
		case <-ctx.Done():
			log.Println("🛑 Audit Worker остановлен")
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *AuditWorker) run(ctx context.Context) error {
	// Отдельное соединение и канал для consumer'а
	conn, err := amqp.Dial(w.url)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("ошибка создания канала: %w", err)
	}
	defer channel.Close()

	// Убеждаемся, что очередь существует
	_, err = channel.QueueDeclare(
		client.AuditQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return fmt.Errorf("ошибка объявления очереди: %w", err)
	}

	msgs, err := channel.Consume(
		client.AuditQueue, // queue
		"audit_worker",    // consumer tag
		false,             // auto-ack (false - подтверждаем вручную)
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("ошибка создания consumer: %w", err)
	}

	log.Println("✅ Audit Worker запущен. Ожидаем сообщения...")
	return w.consume(ctx, msgs)
}

func (w *AuditWorker) consume(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("канал сообщений закрыт")
			}
			w.processMessage(ctx, msg)
		}
	}
}

func (w *AuditWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	log.Printf("📥 Получено сообщение: %d байт", len(msg.Body))

	// 1. Парсим сообщение
	var auditMsg entity.AuditMessage
	if err := json.Unmarshal(msg.Body, &auditMsg); err != nil {
		log.Printf("❌ Ошибка парсинга сообщения: %v", err)
		msg.Nack(false, false) // Не возвращаем в очередь
		return
	}

	// 2. Конвертируем в TaskAudit
	taskAudit, err := convertToTaskAudit(&auditMsg)
	if err != nil {
		log.Printf("❌ Ошибка конвертации: %v", err)
		msg.Nack(false, false)
		return
	}

	// 3. Сохраняем в БД
	if err := w.auditRepo.Create(ctx, taskAudit); err != nil {
		log.Printf("❌ Ошибка сохранения аудита: %v", err)
		msg.Nack(false, true) // Возвращаем в очередь для повторной обработки
		return
	}

	// 4. Подтверждаем обработку
	msg.Ack(false)
	log.Printf("✅ Аудит сохранен: %s задача ID=%s", taskAudit.Action, taskAudit.EntityID)
}

func convertToTaskAudit(msg *entity.AuditMessage) (*entity.TaskAudit, error) {
	oldValues, err := marshalValues(msg.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := marshalValues(msg.NewValues)
	if err != nil {
		return nil, err
	}
	changes, err := marshalValues(msg.Changes)
	if err != nil {
		return nil, err
	}

	changedAt := msg.Timestamp
	if changedAt.IsZero() {
		changedAt = time.Now().UTC()
	}

	return &entity.TaskAudit{
		Action:     msg.Action,
		EntityType: "task",
		EntityID:   msg.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Changes:    changes,
		ChangesAt:  changedAt,
	}, nil
}

// marshalValues - map в JSON строку для колонки JSONB, nil остается NULL
func marshalValues(values map[string]any) (*string, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
