package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/gyro"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// RunGyroProducer drives the discrete gyroscope through its control and
// input device nodes and publishes the measurement stream to MQTT.
func RunGyroProducer() error {
	log.Println("starting sensor-hub gyroscope producer")

	cfg := config.Get()

	ctrl := gyro.NewCharDevice(cfg.GyroControlDevice)
	stream, err := gyro.OpenInputStream(cfg.GyroInputDevice)
	if err != nil {
		return fmt.Errorf("open input device %s: %w", cfg.GyroInputDevice, err)
	}
	defer stream.Close()

	adapter := gyro.NewAdapter(int32(cfg.GyroHandle), ctrl, stream, int(stream.Fd()))
	handle := adapter.Descriptor().Handle

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGyro)
	if err != nil {
		return fmt.Errorf("MQTT connect: %w", err)
	}
	defer client.Disconnect(250)
	log.Printf("gyro producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	publishDescriptor(client, cfg.TopicSensors, adapter.Descriptor())

	if err := adapter.SetDelay(handle, int64(cfg.GyroDelayMS)*1_000_000); err != nil {
		return fmt.Errorf("set delay: %w", err)
	}
	if err := adapter.SetEnable(handle, true); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	defer func() {
		if err := adapter.SetEnable(handle, false); err != nil {
			log.Printf("gyro producer: disable error: %v", err)
		}
	}()
	log.Printf("gyro producer: enabled, delay=%dms", cfg.GyroDelayMS)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	events := make([]hal.Event, 64)
	for {
		select {
		case <-sigCh:
			log.Println("gyro producer: shutting down")
			return nil
		default:
		}

		if err := waitReadable(adapter.PollFd(), 100*time.Millisecond); err != nil {
			return err
		}

		n, err := adapter.ReadEvents(events)
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		if n == 0 {
			continue
		}
		publishEvents(client, cfg.TopicEvents, events[:n])
	}
}
