package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/gps"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// displayData holds the latest data for display
type displayData struct {
	mu sync.RWMutex

	event     hal.Event
	haveEvent bool

	fix     gps.Fix
	haveFix bool
}

// RunDisplay shows the latest sensor event and GPS fix on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	// Connect to MQTT
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	evToken := client.Subscribe(cfg.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev hal.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("display: event unmarshal error: %v", err)
			return
		}
		if ev.Type == hal.TypeMetaData {
			return
		}
		data.mu.Lock()
		data.event = ev
		data.haveEvent = true
		data.mu.Unlock()
	})
	evToken.Wait()
	if evToken.Error() != nil {
		return evToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicEvents)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("display: gps unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.fix = f
		data.haveFix = true
		data.mu.Unlock()
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicGPS)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		snapshot := displayData{
			event:     data.event,
			haveEvent: data.haveEvent,
			fix:       data.fix,
			haveFix:   data.haveFix,
		}
		data.mu.RUnlock()

		if err := updateDisplay(dev, &snapshot); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func blankImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}
	return img
}

func newDrawer(img *image1bit.VerticalLSB) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func updateDisplay(dev *ssd1306.Dev, data *displayData) error {
	img := blankImage()
	drawer := newDrawer(img)

	if !data.haveEvent {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte("Sensors"))
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Waiting..."))
	} else {
		ev := data.event
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("h=%d t=%d", ev.Handle, ev.Type)))
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("x %8.3f", ev.Data[0])))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("y %8.3f", ev.Data[1])))
		drawer.Dot = fixed.P(0, 52)
		drawer.DrawBytes([]byte(fmt.Sprintf("z %8.3f", ev.Data[2])))
	}

	if data.haveFix {
		lat := data.fix.Latitude
		latDir := "N"
		if lat < 0 {
			latDir = "S"
			lat = -lat
		}
		lon := data.fix.Longitude
		lonDir := "E"
		if lon < 0 {
			lonDir = "W"
			lon = -lon
		}
		drawer.Dot = fixed.P(70, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("%.2f%s", lat, latDir)))
		drawer.Dot = fixed.P(70, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("%.2f%s", lon, lonDir)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := blankImage()
	drawer := newDrawer(img)

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Sensor Hub"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("data"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
