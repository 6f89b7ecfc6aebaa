// Package pushbus is the Push Bus: a websocket transport over internal/bus
// that authenticates connecting subjects and addresses events to their
// rooms.
package pushbus

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"treewatch/internal/bus"
	"treewatch/internal/enum"
	"treewatch/internal/identity"
	"treewatch/internal/logger"
)

// Config configures the websocket transport.
type Config struct {
	AllowedOrigins        []string
	KeepAlivePingInterval time.Duration
	Identity              identity.Service
}

// PushBus authenticates connecting subjects, joins them to their rooms, and
// exposes the emit primitives the Dispatch Engine and Lifecycle Manager use
// to broadcast alert events.
type PushBus struct {
	ps       bus.PubSub
	identity identity.Service
	upgrader websocket.Upgrader
	pingEvery time.Duration
}

// New builds a PushBus over the given pub/sub backend (MemoryPubSub or
// RedisPubSub).
func New(ps bus.PubSub, cfg Config) *PushBus {
	pingEvery := cfg.KeepAlivePingInterval
	if pingEvery <= 0 {
		pingEvery = 30 * time.Second
	}

	return &PushBus{
		ps:       ps,
		identity: cfg.Identity,
		pingEvery: pingEvery,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return isDevMode(cfg.AllowedOrigins)
				}
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ServeHTTP upgrades the connection, authenticates the bearer credential
// carried on it, joins the subject's rooms (volunteer:<id> for volunteers,
// admins for admins; every connection implicitly receives global), and
// pumps room messages to the client until it disconnects.
func (p *PushBus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		http.Error(w, "missing bearer credential", http.StatusUnauthorized)
		return
	}

	subject, err := p.identity.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired credential", http.StatusUnauthorized)
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.GetLogger(r.Context()).Error("pushbus: upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	rooms := roomsFor(subject)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	unsubs := make([]func(), 0, len(rooms))
	merged := make(chan []byte, 256)
	for _, room := range rooms {
		ch, unsub := p.ps.Subscribe(ctx, room)
		unsubs = append(unsubs, unsub)
		go relay(ctx, ch, merged)
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	go p.readPump(conn, cancel)
	p.writePump(conn, merged, cancel)
}

func relay(ctx context.Context, src <-chan []byte, dst chan<- []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// readPump discards inbound client frames (this transport is emit-only) but
// must keep reading so pong control frames and close frames are handled.
func (p *PushBus) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *PushBus) writePump(conn *websocket.Conn, messages <-chan []byte, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(p.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func roomsFor(subject identity.Subject) []string {
	rooms := []string{bus.GlobalTopic()}
	if subject.Role == enum.RoleVolunteer {
		rooms = append(rooms, bus.VolunteerTopic(subject.SubjectID))
	}
	if subject.Role == enum.RoleAdmin {
		rooms = append(rooms, bus.AdminsTopic())
	}
	return rooms
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

func isDevMode(allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, origin := range allowedOrigins {
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
	}
	return false
}

// Emit primitives used by the Dispatch Engine and Lifecycle Manager.

// ToVolunteer addresses event+payload to a single volunteer's private room.
func (p *PushBus) ToVolunteer(ctx context.Context, volunteerID string, event bus.EventType, payload interface{}) error {
	return p.publish(ctx, bus.VolunteerTopic(volunteerID), event, payload)
}

// ToVolunteers addresses event+payload to each volunteer's private room.
// Best-effort: the first publish failure is returned, the rest are still
// attempted.
func (p *PushBus) ToVolunteers(ctx context.Context, volunteerIDs []string, event bus.EventType, payload interface{}) error {
	var firstErr error
	for _, id := range volunteerIDs {
		if err := p.ToVolunteer(ctx, id, event, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ToAdmins addresses event+payload to the shared admin room.
func (p *PushBus) ToAdmins(ctx context.Context, event bus.EventType, payload interface{}) error {
	return p.publish(ctx, bus.AdminsTopic(), event, payload)
}

// ToGlobal addresses event+payload to every connected subject.
func (p *PushBus) ToGlobal(ctx context.Context, event bus.EventType, payload interface{}) error {
	return p.publish(ctx, bus.GlobalTopic(), event, payload)
}

type envelope struct {
	Event   bus.EventType `json:"event"`
	Payload interface{}   `json:"payload"`
}

func (p *PushBus) publish(ctx context.Context, topic string, event bus.EventType, payload interface{}) error {
	if err := p.ps.Publish(ctx, topic, envelope{Event: event, Payload: payload}); err != nil {
		return fmt.Errorf("pushbus: publish %s to %s: %w", event, topic, err)
	}
	return nil
}
