package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/sensor_hub/internal/app"
	"github.com/relabs-tech/sensor_hub/internal/config"
)

func main() {
	configPath := flag.String("config", "./sensor_hub.conf", "path to configuration file")
	flag.Parse()

	log.Println("starting sensor-hub gyroscope producer (gyro → MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunGyroProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
