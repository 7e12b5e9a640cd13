package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	grpcapi "github.com/St1cky1/taskflow/internal/api/grpc"
	"github.com/St1cky1/taskflow/internal/config"
	"github.com/St1cky1/taskflow/internal/infrastructure/client"
	"github.com/St1cky1/taskflow/internal/repository"
	"github.com/St1cky1/taskflow/internal/worker"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var wg sync.WaitGroup

	cfg, err := config.Load(os.Getenv("TASKFLOW_CONFIG"))
	if err != nil {
		log.Fatal("❌ Ошибка конфигурации:", err)
	}

	// Запускаем миграции
	if err := runMigrations(cfg.MigrationsPath, cfg.Database.DSN()); err != nil {
		log.Fatal("❌ Ошибка миграций:", err)
	}

	// Подключаемся к БД
	db, err := client.NewPostgresClient(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal("❌ Ошибка подключения к БД:", err)
	}
	fmt.Println("✅ Подключение к БД установлено")

	// Инициализируем репозитории
	recordRepo := repository.NewRecordRepository(db.Pool)
	taskAuditRepo := repository.NewTaskAuditRepository(db.Pool)

	// Запускаем воркер для обработки аудит-сообщений
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.RabbitMQURL != "" {
		auditWorker := worker.NewAuditWorker(cfg.RabbitMQURL, taskAuditRepo)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Println("Запуск Audit Worker...")
			auditWorker.Start(workerCtx)
		}()
	} else {
		fmt.Println("⚠️  rabbitmq.url не задан, аудит не сохраняется")
	}

	// Запускаем gRPC сервер record API
	grpcServer := grpcapi.NewGRPCServer(recordRepo)
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Запуск gRPC сервера на порту %s...\n", cfg.GRPCPort)
		if err := grpcServer.Start(cfg.GRPCPort); err != nil {
			log.Printf("❌ gRPC server error: %v", err)
		}
	}()

	// Запускаем gRPC Gateway (HTTP->gRPC трансляция)
	gatewayCtx, gatewayCancel := context.WithCancel(context.Background())
	defer gatewayCancel()
	gatewayHandler, err := grpcapi.NewGatewayHandler(gatewayCtx, "localhost:"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("❌ Ошибка создания gateway:", err)
	}
	if err := grpcapi.HandleAuditHistory(gatewayHandler, taskAuditRepo); err != nil {
		log.Fatal("❌ Ошибка создания gateway:", err)
	}
	if err := grpcapi.HandleHealth(gatewayHandler, db.HealthCheck); err != nil {
		log.Fatal("❌ Ошибка создания gateway:", err)
	}
	gateway := &http.Server{
		Addr:              ":" + cfg.GatewayPort,
		Handler:           gatewayHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Запуск gRPC Gateway на порту %s...\n", cfg.GatewayPort)
		if err := gateway.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ gRPC Gateway error: %v", err)
		}
	}()

	fmt.Println("✅ Record API готов к работе!")
	fmt.Printf(" gRPC Gateway: http://localhost:%s/v1/records/{table}/fetch\n", cfg.GatewayPort)
	fmt.Printf(" История аудита: http://localhost:%s/v1/audit/tasks/{id}\n", cfg.GatewayPort)
	fmt.Printf(" gRPC сервер: localhost:%s\n", cfg.GRPCPort)
	fmt.Println("Для остановки нажмите Ctrl+C")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"gateway": func(ctx context.Context) error {
				defer gatewayCancel()
				return gateway.Shutdown(ctx)
			},
			"grpc": func(ctx context.Context) error {
				grpcServer.Stop()
				return nil
			},
			"audit-worker": func(ctx context.Context) error {
				workerCancel()
				return nil
			},
		},
	)

	exitCode := <-wait
	wg.Wait()
	db.Close()
	fmt.Printf("✅ Приложение завершено (код %d)\n", exitCode)
	os.Exit(exitCode)
}

func runMigrations(path, dbURL string) error {
	m, err := migrate.New("file://"+path, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка создания мигратора: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %w", err)
	}

	fmt.Println("✅ Миграции выполнены успешно")
	return nil
}
