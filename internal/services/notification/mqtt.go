package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/models"
)

// MQTTOptions configure the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	QoS      byte
}

// CountMessage is published to SYS/<camera> on every count change.
type CountMessage struct {
	Camera    string                  `json:"camera"`
	Zone      string                  `json:"zone"`
	Counter   string                  `json:"counter"`
	Total     int                     `json:"total"`
	In        int                     `json:"in"`
	Out       int                     `json:"out"`
	ClassWise map[string]models.Tally `json:"class_wise,omitempty"`
}

// StatusMessage is published to SYS/<camera>/status.
type StatusMessage struct {
	Camera string `json:"camera"`
	Detail string `json:"detail"`
}

// MQTTSink publishes count snapshots for displays and PLC gateways.
type MQTTSink struct {
	client    mqtt.Client
	qos       byte
	connected atomic.Bool

	// publish is swapped out in tests.
	publish func(topic string, payload []byte) error
}

// NewMQTTSink connects to the broker. Paho keeps reconnecting in the
// background after the first successful connect.
func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	s := &MQTTSink{qos: opts.QoS}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)

	co.OnConnect = func(c mqtt.Client) {
		s.connected.Store(true)
		log.Info().Str("broker", opts.Broker).Str("client_id", opts.ClientID).Msg("MQTT connection established")
	}
	co.OnConnectionLost = func(c mqtt.Client, err error) {
		s.connected.Store(false)
		log.Warn().Err(err).Str("broker", opts.Broker).Msg("MQTT connection lost, will auto-reconnect")
	}

	s.client = mqtt.NewClient(co)

	log.Info().Str("broker", opts.Broker).Msg("Connecting to MQTT broker")
	token := s.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	s.connected.Store(true)

	s.publish = s.publishClient
	return s, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func CountTopic(camera string) string { return "SYS/" + camera }

func (s *MQTTSink) HandleCount(_ context.Context, ev models.CountEvent) error {
	payload, err := json.Marshal(CountMessage{
		Camera:    ev.Camera,
		Zone:      ev.Zone,
		Counter:   ev.Counter,
		Total:     ev.InCounts + ev.OutCounts,
		In:        ev.InCounts,
		Out:       ev.OutCounts,
		ClassWise: ev.ClassWise,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal count message: %w", err)
	}
	return s.publish(CountTopic(ev.Camera), payload)
}

func (s *MQTTSink) HandleDeviceStatus(_ context.Context, ev models.DeviceStatusEvent) error {
	payload, err := json.Marshal(StatusMessage{Camera: ev.Camera, Detail: ev.Detail})
	if err != nil {
		return err
	}
	return s.publish(CountTopic(ev.Camera)+"/status", payload)
}

func (s *MQTTSink) publishClient(topic string, payload []byte) error {
	if !s.connected.Load() {
		return fmt.Errorf("mqtt not connected")
	}
	token := s.client.Publish(topic, s.qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

func (s *MQTTSink) IsConnected() bool { return s.connected.Load() }

func (s *MQTTSink) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
		log.Info().Msg("MQTT disconnected")
	}
	s.connected.Store(false)
}
