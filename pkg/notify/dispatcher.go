package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridianhq/meridian/pkg/async"
	"github.com/meridianhq/meridian/pkg/quota"
	"github.com/meridianhq/meridian/pkg/tenants"
)

// Urgency escalation thresholds.
const (
	urgentPercentage    = 90
	urgentDaysRemaining = 3
)

const deliveryTimeout = 15 * time.Second

// Dispatcher fans notification events out to channels in the
// background. It satisfies the quota package's notifier contract.
type Dispatcher struct {
	channels       []Channel
	urgentChannels []Channel
	logger         *logrus.Logger
}

// NewDispatcher creates a dispatcher delivering to the given channels.
// Urgent events additionally go to the urgent channels.
func NewDispatcher(logger *logrus.Logger, channels []Channel, urgentChannels []Channel) *Dispatcher {
	return &Dispatcher{
		channels:       channels,
		urgentChannels: urgentChannels,
		logger:         logger,
	}
}

// SendWarning delivers a quota warning. Returns immediately.
func (d *Dispatcher) SendWarning(ctx context.Context, tenant *tenants.Tenant, metric string, percentage float64, level quota.WarningLevel) {
	event := newEvent(EventQuotaWarning)
	event.TenantID = tenant.ID
	event.TenantName = tenant.Name
	event.Metric = metric
	event.Percentage = percentage
	event.Level = level
	event.Urgent = percentage >= urgentPercentage

	d.dispatch(ctx, event)
}

// SendGraceReminder delivers a grace-period reminder. Returns
// immediately.
func (d *Dispatcher) SendGraceReminder(ctx context.Context, tenant *tenants.Tenant, metric string, daysRemaining int) {
	event := newEvent(EventGraceReminder)
	event.TenantID = tenant.ID
	event.TenantName = tenant.Name
	event.Metric = metric
	event.DaysRemaining = daysRemaining
	event.Urgent = daysRemaining <= urgentDaysRemaining

	d.dispatch(ctx, event)
}

func (d *Dispatcher) dispatch(ctx context.Context, event *Event) {
	targets := make([]Channel, 0, len(d.channels)+len(d.urgentChannels))
	targets = append(targets, d.channels...)
	if event.Urgent {
		targets = append(targets, d.urgentChannels...)
	}

	for _, ch := range targets {
		ch := ch
		task := fmt.Sprintf("notify %s via %s", event.Type, ch.Name())
		async.SafeGo(ctx, deliveryTimeout, task, func(ctx context.Context) error {
			if err := ch.Send(ctx, event); err != nil {
				d.logger.WithError(err).WithFields(logrus.Fields{
					"channel":   ch.Name(),
					"event_id":  event.ID,
					"tenant_id": event.TenantID,
					"metric":    event.Metric,
				}).Error("notification delivery failed")
				return err
			}
			return nil
		})
	}
}
