// Package stream broadcasts the current particle buffers to remote renderers
// over websockets.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"github.com/pthm-cable/beads/particles"
)

// headerSize is count (uint32) + frame (uint64).
const headerSize = 12

// particleSize is position xyz + velocity xyz as float32.
const particleSize = 6 * 4

// Frame is a decoded broadcast message.
type Frame struct {
	Number     uint64
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
}

// Encode appends the wire form of a view to buf and returns it.
// Layout is little-endian: count, frame number, then per particle
// position xyz and velocity xyz.
func Encode(buf []byte, frame uint64, v particles.View) []byte {
	n := v.Len()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	buf = binary.LittleEndian.AppendUint64(buf, frame)
	for i := 0; i < n; i++ {
		p, vel := v.Position(i), v.Velocity(i)
		for _, c := range [6]float32{p[0], p[1], p[2], vel[0], vel[1], vel[2]} {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	return buf
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (Frame, error) {
	if len(data) < headerSize {
		return Frame{}, fmt.Errorf("stream: short message (%d bytes)", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data))
	if len(data) != headerSize+n*particleSize {
		return Frame{}, fmt.Errorf("stream: message of %d bytes does not hold %d particles", len(data), n)
	}

	f := Frame{
		Number:     binary.LittleEndian.Uint64(data[4:]),
		Positions:  make([]mgl32.Vec3, n),
		Velocities: make([]mgl32.Vec3, n),
	}
	off := headerSize
	next := func() float32 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		return v
	}
	for i := 0; i < n; i++ {
		f.Positions[i] = mgl32.Vec3{next(), next(), next()}
		f.Velocities[i] = mgl32.Vec3{next(), next(), next()}
	}
	return f, nil
}

// Hub tracks connected clients and fans out encoded frames.
type Hub struct {
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	latestMu sync.Mutex
	latest   []byte
	buf      []byte

	server *http.Server
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// ServeHTTP upgrades the request and registers the client. The latest frame,
// if any, is sent immediately. Incoming messages are ignored; a read error
// unregisters the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	mu := &sync.Mutex{}
	h.latestMu.Lock()
	latest := h.latest
	h.latestMu.Unlock()
	if latest != nil {
		if err := conn.WriteMessage(websocket.BinaryMessage, latest); err != nil {
			return
		}
	}

	h.clientsMu.Lock()
	h.clients[conn] = mu
	h.clientsMu.Unlock()
	slog.Info("stream_client_connected", "remote", r.RemoteAddr, "clients", h.Clients())

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		slog.Info("stream_client_disconnected", "remote", r.RemoteAddr)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Broadcast encodes the view and sends it to every client. Clients that fail
// to receive are closed and dropped.
func (h *Hub) Broadcast(frame uint64, v particles.View) {
	h.latestMu.Lock()
	h.buf = Encode(h.buf[:0], frame, v)
	msg := make([]byte, len(h.buf))
	copy(msg, h.buf)
	h.latest = msg
	h.latestMu.Unlock()

	var failed []*websocket.Conn
	h.clientsMu.RLock()
	for conn, mu := range h.clients {
		mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		err := conn.WriteMessage(websocket.BinaryMessage, msg)
		mu.Unlock()
		if err != nil {
			slog.Warn("stream_write_failed", "error", err)
			failed = append(failed, conn)
		}
	}
	h.clientsMu.RUnlock()

	if len(failed) > 0 {
		h.clientsMu.Lock()
		for _, conn := range failed {
			conn.Close()
			delete(h.clients, conn)
		}
		h.clientsMu.Unlock()
	}
}

// Start listens on addr and serves the hub at /ws in the background.
// It returns the bound address.
func (h *Hub) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("stream: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("stream_server_failed", "error", err)
		}
	}()

	slog.Info("stream_listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Close stops the server and disconnects all clients.
func (h *Hub) Close(ctx context.Context) error {
	h.clientsMu.Lock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}
