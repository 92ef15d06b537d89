package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"color-relay/internal/registry"
	"color-relay/pkg/metrics"
)

type Hub struct {
	log      *slog.Logger
	reg      registry.Registry
	bus      Bus // nil on a single instance
	ids      *IDGen
	instance string
	origins  []string

	mu    sync.RWMutex
	rooms map[string]*Room // groups by id
	conns map[*Conn]struct{}
}

// NewHub sets up the hub with registry, optional bus and allowed origins
func NewHub(logger *slog.Logger, reg registry.Registry, bus Bus, origins []string) *Hub {
	return &Hub{
		log:      logger,
		reg:      reg,
		bus:      bus,
		ids:      NewIDGen(),
		instance: uuid.NewString(),
		origins:  origins,
		rooms:    map[string]*Room{},
		conns:    map[*Conn]struct{}{},
	}
}

// Run listens to the bus and forwards relays from other instances to local rooms
func (h *Hub) Run(ctx context.Context) {
	if h.bus != nil {
		go h.bus.Subscribe(ctx, func(msg BusMessage) {
			if msg.Origin == h.instance {
				return
			}
			n := h.deliver([]string{msg.Room}, colorFrame(msg.Payload))
			metrics.ColorRelays.WithLabelValues("bus").Add(float64(n))
		})
	}
	<-ctx.Done()
}

// ServeWS handles a new /ws connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := Accept(w, r, h.origins)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := NewConn(conn, uuid.NewString())
	h.Connect(c)

	// Outbound writer
	go c.WriteLoop(ctx)
	c.Send(Frame{Event: EventConnect, Data: encode(connectData{SID: c.ID()})})

	// Inbound frames run one at a time so a connection's operations stay ordered
	for {
		payload, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.dispatch(ctx, c, payload)
	}

	cleanupCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer stop()
	h.Disconnect(cleanupCtx, c)
	_ = c.Close()
}

// dispatch decodes and runs one inbound frame; bad frames are dropped
func (h *Hub) dispatch(ctx context.Context, c *Conn, payload []byte) {
	var f Frame
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("ws.frame.panic", "sid", c.ID(), "event", f.Event, "panic", fmt.Sprint(rec))
		}
	}()

	if err := json.Unmarshal(payload, &f); err != nil {
		h.log.Debug("ws.frame.dropped", "sid", c.ID(), "err", err)
		return
	}

	switch f.Event {
	case EventHostRoom:
		h.ack(ctx, c, f, h.HostRoom(ctx, c))
	case EventJoinRoom:
		h.ack(ctx, c, f, h.JoinRoom(c, roomIDOf(f.Data)))
	case EventColor:
		h.Color(ctx, c, f.Data)
	default:
		h.log.Debug("ws.frame.unknown", "sid", c.ID(), "event", f.Event)
	}
}

func (h *Hub) ack(ctx context.Context, c *Conn, f Frame, v string) {
	if f.ID != 0 && !c.reply(ctx, f.ID, v) {
		h.log.Warn("ws.ack.lost", "sid", c.ID(), "event", f.Event, "id", f.ID)
	}
}

// roomIDOf reads a join-room payload. Strings are used as is; any other
// JSON value is used as its raw text, and a missing payload is "".
func roomIDOf(data json.RawMessage) string {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err == nil {
		return roomID
	}
	return strings.TrimSpace(string(data))
}

// Connect registers c and puts it in its self-named group
func (h *Hub) Connect(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.joinLocked(c, c.ID())
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	h.log.Debug("ws.connect", "sid", c.ID())
}

// HostRoom makes c the host of a fresh room and returns its id
func (h *Hub) HostRoom(ctx context.Context, c *Conn) string {
	roomID := h.ids.Next()

	h.mu.Lock()
	h.leaveLocked(c, c.ID())
	h.joinLocked(c, roomID)
	c.hosted = append(c.hosted, roomID)
	h.mu.Unlock()

	if err := h.reg.Register(ctx, roomID); err != nil {
		h.log.Error("room.register", "room", roomID, "err", err)
	}
	metrics.RoomsHosted.Inc()
	h.log.Info("room.hosted", "sid", c.ID(), "room", roomID)
	return roomID
}

// JoinRoom adds c to roomID whether or not the room is live
func (h *Hub) JoinRoom(c *Conn, roomID string) string {
	h.mu.Lock()
	h.joinLocked(c, roomID)
	h.mu.Unlock()

	h.log.Debug("room.joined", "sid", c.ID(), "room", roomID)
	return fmt.Sprintf("%s joined %s", c.ID(), roomID)
}

// Color relays value to every member of every group c is in, c included.
// Each recipient gets the event once.
func (h *Hub) Color(ctx context.Context, c *Conn, value json.RawMessage) {
	h.mu.RLock()
	groups := make([]string, 0, len(c.groups))
	for g := range c.groups {
		groups = append(groups, g)
	}
	h.mu.RUnlock()

	n := h.deliver(groups, colorFrame(value))
	metrics.ColorRelays.WithLabelValues("local").Add(float64(n))

	if h.bus == nil {
		return
	}
	for _, g := range groups {
		if err := h.bus.Publish(ctx, BusMessage{Room: g, Origin: h.instance, Payload: value}); err != nil {
			h.log.Error("bus.publish", "room", g, "err", err)
		}
	}
}

// Disconnect drops all memberships of c and deregisters the rooms it hosted
func (h *Hub) Disconnect(ctx context.Context, c *Conn) {
	h.mu.Lock()
	for g := range c.groups {
		h.leaveLocked(c, g)
	}
	delete(h.conns, c)
	hosted := c.hosted
	c.hosted = nil
	h.mu.Unlock()

	for _, roomID := range hosted {
		if err := h.reg.Deregister(ctx, roomID); err != nil {
			h.log.Error("room.deregister", "room", roomID, "err", err)
			continue
		}
		metrics.RoomsReleased.Inc()
		h.log.Info("room.released", "sid", c.ID(), "room", roomID)
	}
	metrics.ConnectionsActive.Dec()
	h.log.Debug("ws.disconnect", "sid", c.ID())
}

// Members returns how many local connections are in a group
func (h *Hub) Members(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rm := h.rooms[roomID]; rm != nil {
		return rm.Len()
	}
	return 0
}

// deliver sends frame once to every member of groups, returns the fan-out
func (h *Hub) deliver(groups []string, frame []byte) int {
	if frame == nil {
		return 0
	}
	recipients := map[*Conn]struct{}{}
	h.mu.RLock()
	for _, g := range groups {
		if rm := h.rooms[g]; rm != nil {
			rm.collect(recipients)
		}
	}
	h.mu.RUnlock()

	n := 0
	for c := range recipients {
		if c.sendRaw(frame) {
			n++
		}
	}
	return n
}

func (h *Hub) joinLocked(c *Conn, roomID string) {
	rm := h.rooms[roomID]
	if rm == nil {
		rm = NewRoom()
		h.rooms[roomID] = rm
	}
	rm.Join(c)
	c.groups[roomID] = struct{}{}
}

func (h *Hub) leaveLocked(c *Conn, roomID string) {
	delete(c.groups, roomID)
	rm := h.rooms[roomID]
	if rm == nil {
		return
	}
	rm.Leave(c)
	if rm.Empty() {
		delete(h.rooms, roomID)
	}
}

func colorFrame(value json.RawMessage) []byte {
	b, err := json.Marshal(Frame{Event: EventColor, Data: value})
	if err != nil {
		return nil
	}
	return b
}
