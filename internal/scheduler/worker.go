package scheduler

import (
	"context"
	"fmt"

	"foodbridge_backend/internal/events"
	"foodbridge_backend/platform/config"
	"foodbridge_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes scheduled tasks and republishes them as domain events.
// Delivery state is not checked here; the notification module resolves the
// delivery when the event fires and drops reminders for deliveries that no
// longer exist.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskDeliveryReminder, w.handleDeliveryReminder)

	return w, nil
}

func (w *Worker) handleDeliveryReminder(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseDeliveryReminderPayload(task)
	if err != nil {
		return err
	}

	deliveryID, err := uuid.Parse(payload.DeliveryID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.DeliveryReminderDue{
		BaseEvent:  events.NewBaseEvent(),
		DeliveryID: deliveryID,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
