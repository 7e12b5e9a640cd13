package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/St1cky1/taskflow/internal/config"
	"github.com/St1cky1/taskflow/internal/infrastructure/client"
	"github.com/St1cky1/taskflow/internal/repository"
	"github.com/St1cky1/taskflow/internal/usecase"
)

// openStore собирает TaskStore по конфигурации. close освобождает соединения
// и дожидается отправки аудита. Переменная, чтобы тесты могли подменить хранилище.
var openStore = func(ctx context.Context, cfg *config.Config) (store usecase.TaskStore, closeFn func(), err error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	var taskRepo repository.ITaskRepository
	switch cfg.Storage.Backend {
	case config.BackendRemote:
		records, err := client.NewRecordClient(cfg.RecordsAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to record API: %w", err)
		}
		closers = append(closers, func() { records.Close() })
		taskRepo = repository.NewRemoteTaskRepository(records, cfg.RecordsTable)

	default:
		var blob repository.IBlobStore
		if cfg.Storage.Blob == config.BlobRedis {
			rdb, err := client.NewRedisClient(ctx, cfg.RedisAddr)
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, func() { rdb.Close() })
			blob = repository.NewRedisBlobStore(rdb, "")
		} else {
			blob = repository.NewFileBlobStore(cfg.Storage.Dir)
		}
		taskRepo = repository.NewLocalTaskRepository(blob, cfg.Storage.Key)
	}

	var audit usecase.AuditPublisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := client.NewRabbitMQClient(cfg.RabbitMQURL)
		if err != nil {
			// аудит необязателен, работаем без него
			log.Printf("⚠️  audit disabled: %v", err)
		} else {
			closers = append(closers, func() { rabbit.Close() })
			audit = rabbit
		}
	}

	service := usecase.NewTaskService(taskRepo, audit)
	// аудит дожидается до закрытия RabbitMQ
	closers = append(closers, service.WaitAudit)

	return service, closeAll, nil
}
