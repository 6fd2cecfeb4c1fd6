// Package scheduler enqueues and processes delayed tasks via asynq. The API
// process enqueues reminders through Client; the worker process consumes them
// and republishes domain events on the bus.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDeliveryReminder = "deliveries.reminder"

type DeliveryReminderPayload struct {
	DeliveryID string `json:"deliveryId"`
}

func NewDeliveryReminderTask(payload DeliveryReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliveryReminder, data), nil
}

func ParseDeliveryReminderPayload(task *asynq.Task) (DeliveryReminderPayload, error) {
	var payload DeliveryReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DeliveryReminderPayload{}, err
	}
	return payload, nil
}
