package email

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/notification"
	"github.com/qline/booking-api/pkg/logger"
	"github.com/qline/booking-api/pkg/messaging"
)

// Dispatcher subscribes to appointment event channels on the broker and
// turns them into customer emails. It runs inside the worker process, so
// SMTP latency never touches a request path.
type Dispatcher struct {
	broker messaging.Broker
	email  Service
	logger *logger.Logger
}

func NewDispatcher(broker messaging.Broker, email Service, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{broker: broker, email: email, logger: logger}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	channels := []string{
		model.EventAppointmentCreated,
		model.EventAppointmentCancelled,
		model.EventAppointmentRescheduled,
		model.EventAppointmentReminder,
	}

	var wg sync.WaitGroup
	for _, channel := range channels {
		messages, err := d.broker.Subscribe(ctx, channel)
		if err != nil {
			d.logger.Error(err, "failed to subscribe", "channel", channel)
			continue
		}

		wg.Add(1)
		go func(channel string, messages <-chan []byte) {
			defer wg.Done()
			d.consume(ctx, channel, messages)
		}(channel, messages)
	}
	wg.Wait()
}

func (d *Dispatcher) consume(ctx context.Context, channel string, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			if err := d.handle(ctx, channel, raw); err != nil {
				d.logger.Error(err, "failed to deliver email", "channel", channel)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, channel string, raw []byte) error {
	var payload notification.AppointmentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if payload.CustomerEmail == "" {
		return nil
	}

	switch channel {
	case model.EventAppointmentCreated:
		return d.email.SendConfirmation(ctx, payload.CustomerEmail, payload.CustomerName, payload.ConfirmationCode, payload.ScheduledAt)
	case model.EventAppointmentCancelled:
		return d.email.SendCancellation(ctx, payload.CustomerEmail, payload.CustomerName, payload.ConfirmationCode, payload.Reason)
	case model.EventAppointmentRescheduled:
		return d.email.SendReschedule(ctx, payload.CustomerEmail, payload.CustomerName, payload.ConfirmationCode, payload.PreviousTime, payload.ScheduledAt)
	case model.EventAppointmentReminder:
		return d.email.SendReminder(ctx, payload.CustomerEmail, payload.CustomerName, payload.ConfirmationCode, payload.ScheduledAt)
	}
	return nil
}
