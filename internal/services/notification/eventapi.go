package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/models"
)

const (
	eventSaveImage    = "save_image"
	eventDeviceStatus = "update_device_status"
	gateAll           = "all"
)

// GatePayload is the body accepted by the event API's /event endpoint.
type GatePayload struct {
	Gate   string `json:"gate"`
	Event  string `json:"event"`
	Camera string `json:"camera"`
	Detail string `json:"detail,omitempty"`
}

// EventAPI posts gate events, snapshot references and device status to an
// HTTP endpoint.
type EventAPI struct {
	url       string
	client    *http.Client
	snapshots *SnapshotStore
}

// NewEventAPI builds the sink; snapshots may be nil to skip images.
func NewEventAPI(baseURL string, timeout time.Duration, snapshots *SnapshotStore) *EventAPI {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventAPI{
		url:       strings.TrimRight(baseURL, "/") + "/event",
		client:    &http.Client{Timeout: timeout},
		snapshots: snapshots,
	}
}

func (e *EventAPI) Name() string { return "event_api" }

// HandleCount stores the snapshot, posts the gate event and then the image
// reference.
func (e *EventAPI) HandleCount(ctx context.Context, ev models.CountEvent) error {
	var imageURL string
	if e.snapshots != nil && len(ev.Snapshot) > 0 {
		u, err := e.snapshots.Save(ev.Zone, ev.Snapshot)
		if err != nil {
			log.Warn().Err(err).Str("camera_id", ev.Camera).Str("zone", ev.Zone).Msg("Failed to save snapshot")
		} else {
			imageURL = u
		}
	}

	if err := e.post(ctx, GatePayload{Gate: ev.Zone, Event: string(ev.Direction), Camera: ev.Camera}); err != nil {
		return err
	}
	if imageURL == "" {
		return nil
	}
	return e.post(ctx, GatePayload{Gate: ev.Zone, Event: eventSaveImage, Camera: imageURL})
}

func (e *EventAPI) HandleDeviceStatus(ctx context.Context, ev models.DeviceStatusEvent) error {
	return e.post(ctx, GatePayload{
		Gate:   gateAll,
		Event:  eventDeviceStatus,
		Camera: ev.Camera,
		Detail: ev.Detail,
	})
}

func (e *EventAPI) post(ctx context.Context, payload GatePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("event %s for %s: %w", payload.Event, payload.Gate, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("event %s for %s: unexpected status %s", payload.Event, payload.Gate, resp.Status)
	}

	log.Debug().
		Str("gate", payload.Gate).
		Str("event", payload.Event).
		Str("camera", payload.Camera).
		Msg("Event posted")
	return nil
}
