// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/gps"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// webState caches the latest data per sensor handle for the JSON API and
// fans live events out to websocket subscribers.
type webState struct {
	mu      sync.RWMutex
	sensors map[int32]hal.Descriptor
	latest  map[int32]hal.Event
	lastFix gps.Fix
	haveFix bool

	subMu sync.Mutex
	subs  map[*websocket.Conn]struct{}
}

func newWebState() *webState {
	return &webState{
		sensors: make(map[int32]hal.Descriptor),
		latest:  make(map[int32]hal.Event),
		subs:    make(map[*websocket.Conn]struct{}),
	}
}

func (s *webState) storeEvent(ev hal.Event) {
	// Flush markers are forwarded live but not cached as "latest data".
	if ev.Type == hal.TypeMetaData {
		return
	}
	s.mu.Lock()
	s.latest[ev.Handle] = ev
	s.mu.Unlock()
}

// broadcast sends raw payload to every websocket subscriber, dropping
// connections that fail to write.
func (s *webState) broadcast(payload []byte) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for conn := range s.subs {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.subs, conn)
		}
	}
}

func (s *webState) addSub(conn *websocket.Conn) {
	s.subMu.Lock()
	s.subs[conn] = struct{}{}
	s.subMu.Unlock()
}

func (s *webState) removeSub(conn *websocket.Conn) {
	s.subMu.Lock()
	if _, ok := s.subs[conn]; ok {
		delete(s.subs, conn)
		conn.Close()
	}
	s.subMu.Unlock()
}

// RunWeb serves the latest sensor data over a JSON API, a live websocket
// event stream, and static files from ./web.
func RunWeb() error {
	cfg := config.Get()
	state := newWebState()

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe and keep the caches current
	evToken := client.Subscribe(cfg.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev hal.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("web: event unmarshal error: %v", err)
			return
		}
		state.storeEvent(ev)
		state.broadcast(msg.Payload())
	})
	evToken.Wait()
	if evToken.Error() != nil {
		return evToken.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicEvents)

	descToken := client.Subscribe(cfg.TopicSensors, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var d hal.Descriptor
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("web: descriptor unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.sensors[d.Handle] = d
		state.mu.Unlock()
	})
	descToken.Wait()
	if descToken.Error() != nil {
		return descToken.Error()
	}

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("web: gps unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.lastFix = f
		state.haveFix = true
		state.mu.Unlock()
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}

	// 3) JSON API endpoints
	http.HandleFunc("/api/sensors", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		list := make([]hal.Descriptor, 0, len(state.sensors))
		for _, d := range state.sensors {
			list = append(list, d)
		}
		state.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(list); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	http.HandleFunc("/api/events/latest", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		list := make([]hal.Event, 0, len(state.latest))
		for _, ev := range state.latest {
			list = append(list, ev)
		}
		state.mu.RUnlock()

		if len(list) == 0 {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(list); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	http.HandleFunc("/api/gps", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		if !state.haveFix {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state.lastFix); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) Live event stream over websocket
	http.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		state.addSub(conn)
		log.Printf("web: websocket client connected from %s", r.RemoteAddr)

		// Drain the read side so pings and close frames are processed.
		go func() {
			defer state.removeSub(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// 5) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
