package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/hal"
	"github.com/relabs-tech/sensor_hub/internal/mpu"
)

// RunIMUProducer samples the SPI-attached MPU9250 on a fixed period and
// publishes scaled six-axis events to MQTT.
func RunIMUProducer() error {
	log.Println("starting sensor-hub IMU producer")

	cfg := config.Get()

	src, err := mpu.NewSPISource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		return fmt.Errorf("IMU init: %w", err)
	}

	adapter := mpu.NewAdapter(src, int32(cfg.IMUHandle), cfg.IMUAccelRange, cfg.IMUGyroRange)
	handle := adapter.Descriptor().Handle

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDIMU)
	if err != nil {
		return fmt.Errorf("MQTT connect: %w", err)
	}
	defer client.Disconnect(250)
	log.Printf("imu producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	publishDescriptor(client, cfg.TopicSensors, adapter.Descriptor())

	periodMS := cfg.IMUPeriodMS
	if periodMS < 1 {
		periodMS = 10
	}
	if err := adapter.SetDelay(handle, int64(periodMS)*1_000_000); err != nil {
		return fmt.Errorf("set delay: %w", err)
	}
	if err := adapter.SetEnable(handle, true); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	log.Printf("imu producer: enabled, period=%dms", periodMS)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(adapter.Period())
	defer ticker.Stop()

	events := make([]hal.Event, 4)
	for {
		select {
		case <-sigCh:
			log.Println("imu producer: shutting down")
			return nil
		case <-ticker.C:
		}

		n, err := adapter.ReadEvents(events)
		if err != nil {
			log.Printf("imu producer: read error: %v", err)
			continue
		}
		if n == 0 {
			continue
		}
		publishEvents(client, cfg.TopicEvents, events[:n])
	}
}
