// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sys/unix"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/hal"
	"github.com/relabs-tech/sensor_hub/internal/iio"
)

// waitReadable polls fd for readability, retrying on EINTR. A nil error
// means either data is ready or the timeout elapsed; the caller's read
// path treats "no data yet" as zero events either way.
func waitReadable(fd int, timeout time.Duration) error {
	if fd < 0 {
		time.Sleep(timeout)
		return nil
	}
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		_, err := unix.Poll(pfd, int(timeout.Milliseconds()))
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return fmt.Errorf("poll: %w", err)
	}
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// publishDescriptor announces a sensor's static identity on the retained
// sensors topic so late subscribers can enumerate what is producing.
func publishDescriptor(client mqtt.Client, topic string, desc hal.Descriptor) {
	payload, err := json.Marshal(desc)
	if err != nil {
		log.Printf("producer: descriptor marshal error: %v", err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("producer: descriptor publish error: %v", token.Error())
	}
}

// publishEvents sends each event as one JSON message on the events topic.
func publishEvents(client mqtt.Client, topic string, events []hal.Event) {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("producer: event marshal error: %v", err)
			continue
		}
		if token := client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("producer: event publish error: %v", token.Error())
			return
		}
	}
}

// pickSensor selects the sensor to produce from: by configured name when
// set, otherwise the first discovered one.
func pickSensor(reg *iio.Registry, name string) (*iio.Sensor, error) {
	sensors := reg.Sensors()
	if len(sensors) == 0 {
		return nil, fmt.Errorf("no usable bus sensors discovered")
	}
	if name == "" {
		return sensors[0], nil
	}
	for _, s := range sensors {
		if s.Descriptor().Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("sensor %q not found among %d discovered", name, len(sensors))
}

// RunSensorProducer discovers bus-attached sensors, enables the selected
// one and publishes its measurement stream to MQTT.
func RunSensorProducer() error {
	log.Println("starting sensor-hub bus sensor producer")

	cfg := config.Get()

	ctx := iio.CreateContext()
	if ctx == nil {
		return fmt.Errorf("no sensor bus present")
	}

	reg := iio.NewRegistry(int32(cfg.SensorBaseHandle))
	reg.Update(ctx)
	for _, s := range reg.Sensors() {
		d := s.Descriptor()
		log.Printf("producer: discovered handle=%d name=%q type=%d", d.Handle, d.Name, d.Type)
	}

	sensor, err := pickSensor(reg, cfg.SensorName)
	if err != nil {
		return err
	}
	desc := sensor.Descriptor()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDSensor)
	if err != nil {
		return fmt.Errorf("MQTT connect: %w", err)
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	publishDescriptor(client, cfg.TopicSensors, desc)

	period := int64(cfg.SamplePeriodUS) * 1000
	latency := int64(cfg.MaxLatencyMS) * 1_000_000
	if err := sensor.Batch(desc.Handle, 0, period, latency); err != nil {
		return fmt.Errorf("batch %s: %w", desc.Name, err)
	}

	if err := sensor.SetEnable(desc.Handle, true); err != nil {
		return fmt.Errorf("enable %s: %w", desc.Name, err)
	}
	defer func() {
		if err := sensor.SetEnable(desc.Handle, false); err != nil {
			log.Printf("producer: disable error: %v", err)
		}
	}()
	log.Printf("producer: %s enabled, period=%dus", desc.Name, cfg.SamplePeriodUS)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	events := make([]hal.Event, 64)
	pollTimeout := 2 * time.Duration(cfg.SamplePeriodUS) * time.Microsecond
	if pollTimeout < 10*time.Millisecond {
		pollTimeout = 10 * time.Millisecond
	}

	for {
		select {
		case <-sigCh:
			log.Println("producer: shutting down")
			return nil
		default:
		}

		if err := waitReadable(sensor.PollFd(), pollTimeout); err != nil {
			return err
		}

		n, err := sensor.ReadEvents(events)
		if err != nil {
			return fmt.Errorf("read %s: %w", desc.Name, err)
		}
		if n == 0 {
			continue
		}
		publishEvents(client, cfg.TopicEvents, events[:n])
	}
}
