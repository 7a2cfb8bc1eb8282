package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/gps"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

func printEvent(ev hal.Event) {
	switch ev.Type {
	case hal.TypeMetaData:
		fmt.Printf("[META]  flush complete for handle %d\n", ev.Meta.Handle)
	case hal.TypeGyroscope:
		fmt.Printf("[GYRO]  h=%d  x=%8.4f y=%8.4f z=%8.4f rad/s  t=%d\n",
			ev.Handle, ev.Data[0], ev.Data[1], ev.Data[2], ev.Timestamp)
	case hal.TypeAccelerometer:
		fmt.Printf("[ACC ]  h=%d  x=%8.4f y=%8.4f z=%8.4f m/s²  t=%d\n",
			ev.Handle, ev.Data[0], ev.Data[1], ev.Data[2], ev.Timestamp)
	case hal.TypePressure:
		fmt.Printf("[PRES]  h=%d  p=%10.2f  t=%d\n", ev.Handle, ev.Data[0], ev.Timestamp)
	default:
		fmt.Printf("[EVT ]  h=%d type=%d  data=%v  t=%d\n",
			ev.Handle, ev.Type, ev.Data[:6], ev.Timestamp)
	}
}

// RunConsoleMQTT subscribes to the event, sensor and GPS topics and prints
// everything that arrives, one line per message.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	evToken := client.Subscribe(cfg.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev hal.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("console: event unmarshal error: %v", err)
			return
		}
		printEvent(ev)
	})
	evToken.Wait()
	if evToken.Error() != nil {
		return evToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEvents)

	descToken := client.Subscribe(cfg.TopicSensors, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var d hal.Descriptor
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("console: descriptor unmarshal error: %v", err)
			return
		}
		fmt.Printf("[SENS]  handle=%d name=%q vendor=%q type=%d\n",
			d.Handle, d.Name, d.Vendor, d.Type)
	})
	descToken.Wait()
	if descToken.Error() != nil {
		return descToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSensors)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}
		fmt.Printf("[GPS ]  time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
