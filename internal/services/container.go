package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/services/camera"
	"vehicle-counter-go/internal/services/detection"
	"vehicle-counter-go/internal/services/frameprocessing"
	"vehicle-counter-go/internal/services/messaging"
	"vehicle-counter-go/internal/services/notification"
	"vehicle-counter-go/internal/services/recorder"
	"vehicle-counter-go/internal/services/detection/gocvjpeg"
	"vehicle-counter-go/internal/services/recorder/gocvenc"
	"vehicle-counter-go/internal/services/streamcapture"
	"vehicle-counter-go/internal/store"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	Cameras       []config.CameraConfig
	DetectionSvc  *detection.Service
	Messaging     *messaging.Service
	Ledger        *store.Ledger
	MQTT          *notification.MQTTSink
	Dispatcher    *notification.Dispatcher
	CameraManager *camera.CameraManager

	log zerolog.Logger
}

// NewServiceContainer loads the camera records and builds every service.
// Optional backends (NATS, MQTT) that fail to connect are logged and
// skipped. An invalid camera record or ledger failure aborts startup.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{
		Config: cfg,
		log:    logging.NewServiceLogger(cfg, "container"),
	}

	cams, err := config.LoadCameras(cfg.CamerasConfig, cfg)
	if err != nil {
		return nil, err
	}
	sc.Cameras = cams

	sc.DetectionSvc, err = detection.NewService(cfg.DetectorURL, cfg.DetectorQuality, gocvjpeg.New())
	if err != nil {
		return nil, fmt.Errorf("failed to create detector client: %w", err)
	}

	if cfg.NatsEnabled {
		sc.Messaging, err = messaging.NewService(cfg)
		if err != nil {
			sc.log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, continuing without it")
			sc.Messaging = nil
		}
	}

	sinks, err := sc.buildSinks()
	if err != nil {
		sc.Shutdown(context.Background())
		return nil, err
	}
	sc.Dispatcher = notification.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, sinks...)

	sc.CameraManager, err = camera.NewCameraManager(cfg, cams, sc.DetectionSvc, sc.Dispatcher, sc.factories())
	if err != nil {
		sc.Shutdown(context.Background())
		return nil, err
	}

	return sc, nil
}

func (sc *ServiceContainer) buildSinks() ([]notification.Sink, error) {
	cfg := sc.Config
	var sinks []notification.Sink

	if cfg.LedgerEnabled {
		ledger, err := store.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		sc.Ledger = ledger
		sinks = append(sinks, notification.NewLedgerSink(ledger))
	}

	if cfg.EventAPIEnabled {
		snapshots := notification.NewSnapshotStore(cfg.SnapshotDir, cfg.SnapshotBaseURL)
		sinks = append(sinks, notification.NewEventAPI(cfg.EventAPIURL, cfg.EventAPITimeout, snapshots))
	}

	if sc.Messaging != nil {
		sinks = append(sinks, notification.NewNATSSink(sc.Messaging, cfg.CountsSubject))
	}

	if cfg.MQTTEnabled {
		mqttSink, err := notification.NewMQTTSink(notification.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			QoS:      byte(cfg.MQTTQoS),
		})
		if err != nil {
			sc.log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT unavailable, continuing without it")
		} else {
			sc.MQTT = mqttSink
			sinks = append(sinks, mqttSink)
		}
	}

	return sinks, nil
}

func (sc *ServiceContainer) factories() camera.Factories {
	cfg := sc.Config
	f := camera.Factories{
		Source: func(cam config.CameraConfig) (camera.FrameSource, error) {
			return streamcapture.NewSource(cam.ID, cam.URL, cfg.FrameWidth), nil
		},
		Annotator: func(cam config.CameraConfig) camera.Annotator {
			return frameprocessing.NewAnnotator(cfg, cam.ID)
		},
	}
	if cfg.ArchiveEnabled {
		f.Archive = func(cam config.CameraConfig) camera.Archive {
			var pub recorder.Publisher
			if sc.Messaging != nil {
				pub = sc.Messaging
			}
			return recorder.NewArchive(recorder.OptionsFor(cfg, cam), gocvenc.New(cfg.ArchiveFourCC), pub)
		}
	}
	return f
}

// Start launches the camera pipelines.
func (sc *ServiceContainer) Start(ctx context.Context) error {
	return sc.CameraManager.Start(ctx)
}

// Shutdown stops producers before consumers: cameras first so their last
// events reach the dispatcher, then the dispatcher drains into the sinks,
// then the backends close.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.CameraManager != nil {
		if err := sc.CameraManager.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if sc.Dispatcher != nil {
		if err := sc.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notification drain: %w", err))
		}
	}
	if sc.MQTT != nil {
		sc.MQTT.Close()
	}
	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if sc.Ledger != nil {
		if err := sc.Ledger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if sc.DetectionSvc != nil {
		if err := sc.DetectionSvc.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		sc.log.Error().Err(err).Msg("Shutdown finished with errors")
		return err
	}
	sc.log.Info().Msg("All services stopped")
	return nil
}
