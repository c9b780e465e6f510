package realtime

// Hub owns the set of connected observers and fans broadcast frames out to
// all of them. Delivery is best-effort: an observer that cannot keep up is
// dropped rather than allowed to stall the rest.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound frames to broadcast to all clients.
	broadcast chan []byte

	// Register requests from new observers, with their onboarding backlog.
	register chan registration

	// Unregister requests from clients.
	unregister chan *Client
}

type registration struct {
	client  *Client
	backlog [][]byte
	done    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan registration),
		unregister: make(chan *Client),
	}
}

// Run owns the client set. Every send to a client channel happens here, so
// onboarding backlogs and later broadcasts reach each client in order.
func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			h.clients[reg.client] = true
			for _, frame := range reg.backlog {
				reg.client.send <- frame
			}
			close(reg.done)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				_ = client.conn.Close()
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
					_ = client.conn.Close()
				}
			}
		}
	}
}

// Broadcast queues a frame for every connected client. Fire and forget.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}
