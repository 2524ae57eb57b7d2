package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"stylo/internal/reminders"
	"stylo/pkg/app"
	"stylo/pkg/clock"
	"stylo/pkg/config"
	"stylo/pkg/kafka"
	kafka_middleware "stylo/pkg/kafka/middleware"
	"stylo/pkg/metrics"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

const ServiceName = "reminders"

// The reminders worker sends the WhatsApp reminder for every task that comes
// due, and, when booking events are enabled, schedules reminders from the
// appointment.confirmed stream as well.
func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	m := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	redisOpt := app.RedisQueueOpt(cfg)

	server := reminders.NewServer(redisOpt, cfg.NotifyConcurrency, cfg.Log.Component("reminder_worker"))
	mux := reminders.NewServeMux(reminders.NewTaskHandler(app.NewSender(cfg), m, cfg.Log))
	if err := server.Start(mux); err != nil {
		cfg.Log.Fatal("Failed to start reminder worker", "error", err)
	}
	cfg.Log.Info("Reminder worker started", "queue", reminders.QueueName, "concurrency", cfg.NotifyConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	var (
		consumer  *kafka.Consumer
		scheduler *reminders.AsynqScheduler
	)
	if cfg.EventsEnabled && cfg.Kafka != nil {
		scheduler = reminders.NewAsynqScheduler(asynq.NewClient(redisOpt), clock.Real{}, cfg.ReminderLeadTime, cfg.Log.Component("reminders"))

		var err error
		consumer, err = kafka.NewConsumer(cfg.Kafka, cfg.Log, cfg.EventsTopic, cfg.EventsGroupID, cfg.EventsDLQTopic,
			reminders.NewEventHandler(scheduler, cfg.Log))
		if err != nil {
			server.Shutdown()
			cfg.Log.Fatal("Failed to create event consumer", "error", err)
		}
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(m))

		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg.Log.Info("Consuming booking events", "topic", cfg.EventsTopic, "group_id", cfg.EventsGroupID)
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				cfg.Log.Error("Event consumer stopped", "error", err)
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	cfg.Log.Info("Shutdown signal received", "signal", sig)

	cancel()
	wg.Wait()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close event consumer", "error", err)
		}
	}
	if scheduler != nil {
		if err := scheduler.Close(); err != nil {
			cfg.Log.Error("Failed to close reminder scheduler", "error", err)
		}
	}
	server.Shutdown()
	cfg.Log.Info("Reminder worker stopped")
}
