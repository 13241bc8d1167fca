// Package notifier publishes order execution events to jetstream so
// downstream consumers (alerting, audit) can react to fills.
package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/samthambad/naviin/internal/constant"
	"github.com/samthambad/naviin/internal/entity"
	"github.com/samthambad/naviin/internal/util"
)

var ErrPublishOrderEventFailed = errors.New("failed to publish order event")

var _ entity.Publisher = (*JetstreamNotifier)(nil)

type JetstreamNotifier struct {
	js nats.JetStreamContext
}

func NewJetstreamNotifier(js nats.JetStreamContext) *JetstreamNotifier {
	return &JetstreamNotifier{js: js}
}

func (n *JetstreamNotifier) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.OrderEventStreamName,
		Subjects:  []string{constant.OrderEventStreamSubjectAll},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
	}

	stream, err := n.js.StreamInfo(constant.OrderEventStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.OrderEventStreamName)
		_, err = n.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.OrderEventStreamName)
	_, err = n.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (n *JetstreamNotifier) PublishOrderExecuted(_ context.Context, exec entity.OrderExecutedEvent) error {
	if exec.EventID == "" {
		exec.EventID = uuid.NewString()
	}

	err := util.PublishEvent(n.js, constant.OrderEventSubjectOrderExecuted, exec)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"symbol": exec.Symbol,
			"kind":   exec.OrderKind,
		}).WithError(err).Error("publish order executed event")
		return ErrPublishOrderEventFailed
	}

	return nil
}
