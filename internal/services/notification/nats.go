package notification

import (
	"context"
	"fmt"

	"vehicle-counter-go/internal/models"
)

// Publisher is satisfied by messaging.Service.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// NATSSink publishes count events to <subject>.<camera> and status events to
// <subject>.<camera>.status.
type NATSSink struct {
	pub     Publisher
	subject string
}

func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

func (n *NATSSink) Name() string { return "nats" }

func (n *NATSSink) HandleCount(_ context.Context, ev models.CountEvent) error {
	return n.pub.Publish(fmt.Sprintf("%s.%s", n.subject, ev.Camera), ev)
}

func (n *NATSSink) HandleDeviceStatus(_ context.Context, ev models.DeviceStatusEvent) error {
	return n.pub.Publish(fmt.Sprintf("%s.%s.status", n.subject, ev.Camera), ev)
}
