// Package web provides a monitoring server for mini-lop: a JSON stats
// endpoint and a websocket feed that the same StatsFunc closure used by
// the TUI also drives, plus a minimal inline status page. It never
// touches fuzzing state directly — it only reads through the functions
// it's given.
package web

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"github.com/mini-lop/minilop/pkg/types"
)

// StatsFunc returns the current run stats. Mirrors internal/ui.StatsFunc
// so cmd/minilop can share a single closure between the TUI and the
// web server.
type StatsFunc func() types.RunStats

// Server serves fuzzing stats over HTTP and websocket. Broadcasts are
// driven by a fixed ticker and rate-limited; /api/stats is not limited.
type Server struct {
	app     *fiber.App
	statsFn StatsFunc

	limiter *rate.Limiter

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte

	stopCh chan struct{}
}

// NewServer creates a monitoring server. statsFn is polled on a fixed
// interval to push updates to connected websocket clients.
func NewServer(statsFn StatsFunc) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		app:       app,
		statsFn:   statsFn,
		limiter:   rate.NewLimiter(rate.Limit(5), 5),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 100),
		stopCh:    make(chan struct{}),
	}

	s.setupRoutes()
	go s.handleBroadcast()
	go s.pollStats()

	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())

	api := s.app.Group("/api")
	api.Get("/stats", s.handleStats)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))

	s.app.Get("/", s.handleDashboard)
}

// handleStats returns the current run stats as JSON.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.statsFn())
}

// handleWebSocket streams a stats snapshot to a client whenever the
// broadcaster sends one; the connection is otherwise read-only.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.Close()
	}()

	data, _ := json.Marshal(s.statsFn())
	c.WriteMessage(websocket.TextMessage, data)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) handleBroadcast() {
	for msg := range s.broadcast {
		s.clientsMu.Lock()
		for client := range s.clients {
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMu.Unlock()
	}
}

// pollStats samples statsFn every 500ms and pushes a broadcast when
// limiter allows it; coverage events themselves never trigger a push.
func (s *Server) pollStats() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.limiter.Allow() {
				continue
			}
			data, err := json.Marshal(s.statsFn())
			if err != nil {
				continue
			}
			select {
			case s.broadcast <- data:
			default:
			}
		}
	}
}

// Start starts the web server, blocking until it's shut down.
func (s *Server) Start(addr string) error {
	log.Printf("[*] Monitoring server starting at http://localhost%s\n", addr)
	return s.app.Listen(addr)
}

// Stop shuts the server down and stops the polling goroutine.
func (s *Server) Stop() error {
	close(s.stopCh)
	return s.app.Shutdown()
}
