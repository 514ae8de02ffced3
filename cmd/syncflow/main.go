package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/JoaoMaganin/syncflow/internal/broker"
	"github.com/JoaoMaganin/syncflow/internal/config"
	"github.com/JoaoMaganin/syncflow/internal/database"
	"github.com/JoaoMaganin/syncflow/internal/handler"
	"github.com/JoaoMaganin/syncflow/internal/logger"
	"github.com/JoaoMaganin/syncflow/internal/notifier"
	"github.com/JoaoMaganin/syncflow/internal/repository"
	"github.com/JoaoMaganin/syncflow/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "syncflow",
		Usage: "Collaborative task service with real-time notifications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "amqp-url",
				Value:   config.DefaultAMQPURL,
				Usage:   "RabbitMQ broker URL",
				EnvVars: []string{"RABBITMQ_URL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "tasks",
				Usage: "Run the task command service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "database-url",
						Aliases:  []string{"d"},
						Usage:    "PostgreSQL database URL",
						EnvVars:  []string{"DATABASE_URL"},
						Required: true,
					},
				},
				Action: runTasks,
			},
			{
				Name:  "notifications",
				Usage: "Run the notification fan-out service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultNotificationsPort,
						Usage:   "Websocket server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runNotifications,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// newTaskService wires the store, repositories and publisher into the
// command service. The caller owns the returned closers.
func newTaskService(ctx context.Context, databaseURL, amqpURL string) (*service.TaskService, func(), error) {
	db, err := database.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	publisher, err := broker.NewAMQPPublisher(amqpURL, config.TasksQueue)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	pool := db.Pool()
	svc := service.NewTaskService(
		pool,
		repository.NewTaskRepository(pool),
		repository.NewCommentRepository(pool),
		repository.NewHistoryRepository(pool),
		repository.NewAssigneeRepository(pool),
		repository.NewUserRepository(pool),
		publisher,
		service.ServiceOptions{},
	)

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close publisher", "error", err)
		}
		db.Close()
	}

	return svc, cleanup, nil
}

func runTasks(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	svc, cleanup, err := newTaskService(ctx, c.String("database-url"), c.String("amqp-url"))
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := handler.NewServer(c.String("amqp-url"), config.CommandsQueue, handler.New(svc))
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			slog.Error("failed to close command server", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			serverErr <- err
		}
	}()

	slog.Info("task service ready", "queue", config.CommandsQueue)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("command server error: %w", err)
	case <-done:
		slog.Info("shutting down task service")
	}

	cancel()

	slog.Info("task service stopped")
	return nil
}

func runNotifications(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	hub := notifier.NewHub()
	defer hub.Close()

	consumer, err := notifier.NewConsumer(c.String("amqp-url"), config.TasksQueue, hub)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", "error", err)
		}
	}()

	server := notifier.NewServer(c.String("port"), hub)

	consumerErr := make(chan error, 1)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			consumerErr <- err
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting websocket server", "server_addr", "http://localhost:"+c.String("port"))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-consumerErr:
		return fmt.Errorf("consumer error: %w", err)
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down notifications service")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("notifications service stopped")
	return nil
}
