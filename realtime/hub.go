// Package realtime pushes ledger events (station progress, bypass
// decisions, payment updates) to connected dashboards over websockets.
package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"laundry-backend/models"
)

// Event types
const (
	EventOrderUpdate     = "order_update"
	EventStationUpdate   = "station_update"
	EventBypassRequested = "bypass_requested"
	EventBypassDecided   = "bypass_decided"
	EventPaymentUpdate   = "payment_update"
	EventPickupUpdate    = "pickup_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected dashboard client (workers, drivers, outlet
// admins) keyed by role.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient adds a connection with its role.
func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

// UnregisterClient drops a connection.
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

func BroadcastOrderUpdate(order models.Order) {
	broadcast(Message{Event: EventOrderUpdate, Data: order})
}

func BroadcastStationUpdate(station models.OrderStation) {
	broadcast(Message{Event: EventStationUpdate, Data: station})
}

func BroadcastBypassRequested(req models.BypassRequest) {
	broadcast(Message{Event: EventBypassRequested, Data: req})
}

func BroadcastBypassDecided(req models.BypassRequest) {
	broadcast(Message{Event: EventBypassDecided, Data: req})
}

func BroadcastPaymentUpdate(payment models.Payment, order models.Order) {
	broadcast(Message{
		Event: EventPaymentUpdate,
		Data: map[string]interface{}{
			"payment": payment,
			"order":   order,
		},
	})
}

func BroadcastPickupUpdate(pickup models.PickupRequest) {
	broadcast(Message{Event: EventPickupUpdate, Data: pickup})
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to client: %v", err)
			continue
		}
	}
}
