package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
)

func TestSnapshotFileName(t *testing.T) {
	tests := []struct {
		zone string
		want string
	}{
		{"b", "zone_b.jpg"},
		{"gate-2", "zone_gate-2.jpg"},
		{"../etc/passwd", "zone_.._etc_passwd.jpg"},
		{"north gate", "zone_north_gate.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			require.Equal(t, tt.want, FileName(tt.zone))
		})
	}
}

func TestSnapshotStoreSaveReplaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	s := NewSnapshotStore(dir, "http://localhost/images/")

	url, err := s.Save("b", []byte("first"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost/images/zone_b.jpg", url)

	_, err = s.Save("b", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "zone_b.jpg"))
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are renamed away")
}

type eventServer struct {
	mu       sync.Mutex
	payloads []GatePayload
	status   int
}

func (e *eventServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/event" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var p GatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e.mu.Lock()
	e.payloads = append(e.payloads, p)
	e.mu.Unlock()
	if e.status != 0 {
		w.WriteHeader(e.status)
	}
}

func TestEventAPIPostsGateEventAndSnapshot(t *testing.T) {
	srv := &eventServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	snapshots := NewSnapshotStore(t.TempDir(), "http://localhost/images")
	api := NewEventAPI(ts.URL+"/", time.Second, snapshots)

	err := api.HandleCount(context.Background(), models.CountEvent{
		Camera:    "cam_b-in",
		Zone:      "b",
		Direction: models.DirectionIn,
		Snapshot:  []byte{0xFF, 0xD8},
	})
	require.NoError(t, err)

	want := []GatePayload{
		{Gate: "b", Event: "in", Camera: "cam_b-in"},
		{Gate: "b", Event: "save_image", Camera: "http://localhost/images/zone_b.jpg"},
	}
	if diff := cmp.Diff(want, srv.payloads); diff != "" {
		t.Errorf("payloads mismatch (-want +got):\n%s", diff)
	}
}

func TestEventAPISkipsImageWithoutSnapshot(t *testing.T) {
	srv := &eventServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	api := NewEventAPI(ts.URL, time.Second, nil)
	require.NoError(t, api.HandleCount(context.Background(), models.CountEvent{
		Camera: "cam_b-out", Zone: "b", Direction: models.DirectionOut, Snapshot: []byte{1},
	}))
	require.Equal(t, []GatePayload{{Gate: "b", Event: "out", Camera: "cam_b-out"}}, srv.payloads)
}

func TestEventAPIDeviceStatus(t *testing.T) {
	srv := &eventServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	api := NewEventAPI(ts.URL, time.Second, nil)
	require.NoError(t, api.HandleDeviceStatus(context.Background(), models.DeviceStatusEvent{
		Camera: "cam_b-in", Detail: models.DeviceOffline,
	}))
	require.Equal(t, []GatePayload{{
		Gate: "all", Event: "update_device_status", Camera: "cam_b-in", Detail: "offline",
	}}, srv.payloads)
}

func TestEventAPIRejectsErrorStatus(t *testing.T) {
	ts := httptest.NewServer(&eventServer{status: http.StatusInternalServerError})
	defer ts.Close()

	api := NewEventAPI(ts.URL, time.Second, nil)
	err := api.HandleCount(context.Background(), models.CountEvent{Zone: "b", Direction: models.DirectionIn})
	require.ErrorContains(t, err, "unexpected status")
}

type published struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.msgs = append(f.msgs, published{subject, data})
	return f.err
}

func TestNATSSinkSubjects(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "counts")

	ev := models.CountEvent{ID: "1", Camera: "cam_b-in", Zone: "b"}
	require.NoError(t, sink.HandleCount(context.Background(), ev))
	require.NoError(t, sink.HandleDeviceStatus(context.Background(), models.DeviceStatusEvent{Camera: "cam_b-in"}))

	require.Len(t, pub.msgs, 2)
	require.Equal(t, "counts.cam_b-in", pub.msgs[0].subject)
	require.Equal(t, ev, pub.msgs[0].data)
	require.Equal(t, "counts.cam_b-in.status", pub.msgs[1].subject)

	pub.err = errors.New("not connected")
	require.Error(t, sink.HandleCount(context.Background(), ev))
}

type fakeLedger struct {
	counts  []models.CountEvent
	devices []models.DeviceStatusEvent
}

func (f *fakeLedger) InsertCountEvent(_ context.Context, ev models.CountEvent) error {
	f.counts = append(f.counts, ev)
	return nil
}

func (f *fakeLedger) InsertDeviceEvent(_ context.Context, ev models.DeviceStatusEvent) error {
	f.devices = append(f.devices, ev)
	return nil
}

func TestLedgerSink(t *testing.T) {
	store := &fakeLedger{}
	sink := NewLedgerSink(store)

	require.NoError(t, sink.HandleCount(context.Background(), models.CountEvent{ID: "1"}))
	require.NoError(t, sink.HandleDeviceStatus(context.Background(), models.DeviceStatusEvent{Camera: "c"}))
	require.Len(t, store.counts, 1)
	require.Len(t, store.devices, 1)
}

func TestMQTTSinkPayload(t *testing.T) {
	var topics []string
	var payloads [][]byte
	sink := &MQTTSink{qos: 1}
	sink.publish = func(topic string, payload []byte) error {
		topics = append(topics, topic)
		payloads = append(payloads, payload)
		return nil
	}

	err := sink.HandleCount(context.Background(), models.CountEvent{
		Camera:    "cam_b-in",
		Zone:      "b",
		Counter:   "counter1",
		InCounts:  3,
		OutCounts: 1,
		ClassWise: map[string]models.Tally{"car": {In: 3, Out: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, sink.HandleDeviceStatus(context.Background(), models.DeviceStatusEvent{Camera: "cam_b-in", Detail: "online"}))

	require.Equal(t, []string{"SYS/cam_b-in", "SYS/cam_b-in/status"}, topics)

	var got CountMessage
	require.NoError(t, json.Unmarshal(payloads[0], &got))
	want := CountMessage{
		Camera: "cam_b-in", Zone: "b", Counter: "counter1",
		Total: 4, In: 3, Out: 1,
		ClassWise: map[string]models.Tally{"car": {In: 3, Out: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("count message mismatch (-want +got):\n%s", diff)
	}
	require.JSONEq(t, `{"camera":"cam_b-in","detail":"online"}`, string(payloads[1]))
}

func TestMQTTSinkNotConnected(t *testing.T) {
	sink := &MQTTSink{}
	sink.publish = sink.publishClient
	require.ErrorContains(t, sink.HandleCount(context.Background(), models.CountEvent{Camera: "c"}), "not connected")
	require.False(t, sink.IsConnected())
	sink.Close()
}
