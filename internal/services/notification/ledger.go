package notification

import (
	"context"

	"vehicle-counter-go/internal/models"
)

// LedgerStore is satisfied by store.Ledger.
type LedgerStore interface {
	InsertCountEvent(ctx context.Context, ev models.CountEvent) error
	InsertDeviceEvent(ctx context.Context, ev models.DeviceStatusEvent) error
}

// LedgerSink appends every event to the local ledger.
type LedgerSink struct {
	store LedgerStore
}

func NewLedgerSink(store LedgerStore) *LedgerSink {
	return &LedgerSink{store: store}
}

func (l *LedgerSink) Name() string { return "ledger" }

func (l *LedgerSink) HandleCount(ctx context.Context, ev models.CountEvent) error {
	return l.store.InsertCountEvent(ctx, ev)
}

func (l *LedgerSink) HandleDeviceStatus(ctx context.Context, ev models.DeviceStatusEvent) error {
	return l.store.InsertDeviceEvent(ctx, ev)
}
