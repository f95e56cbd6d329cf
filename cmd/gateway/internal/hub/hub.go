package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/registry"
	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

const snapshotTimeout = 2 * time.Second

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	// Follow replaces whatever sequence the client was forwarding.
	Follow(seq tickgen.Sequence)
	Close()
}

// Hub turns websocket commands into registry calls and keeps track of live
// connections. Subscriptions themselves live in the registry and survive
// disconnects.
type Hub struct {
	registry     *registry.Registry
	store        repository.SnapshotStore
	limiter      repository.RateLimiter
	validTickers map[string]bool
	logger       *zap.Logger

	mu      sync.RWMutex
	clients map[ClientInterface]bool
}

// NewHub wires the hub. An empty validTickers accepts any ticker.
func NewHub(
	reg *registry.Registry,
	store repository.SnapshotStore,
	limiter repository.RateLimiter,
	validTickers map[string]bool,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		registry:     reg,
		store:        store,
		limiter:      limiter,
		validTickers: validTickers,
		logger:       logger,
		clients:      make(map[ClientInterface]bool),
	}
}

// Register tracks a new connection and resumes any subscriptions its client
// id already has.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	if tickers := h.registry.Tickers(client.ID()); len(tickers) > 0 {
		h.logger.Info("Resuming session", zap.String("client", client.ID()), zap.Strings("tickers", tickers))
	}
	client.Follow(h.registry.StreamFor(client.ID()))
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req)
	case protocol.ActionList:
		h.handleList(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest) {
	allowed, err := h.limiter.Allow(client.ID())
	if err != nil {
		h.logger.Error("Rate limiter failed", zap.String("client", client.ID()), zap.Error(err))
	}
	if !allowed {
		h.sendError(client, req.ID, "Rate limit exceeded")
		return
	}

	var accepted []string
	for _, t := range req.Payload.Tickers {
		if len(h.validTickers) > 0 && !h.validTickers[t] {
			continue
		}
		if err := h.registry.Subscribe(client.ID(), t); err != nil {
			h.logger.Debug("Rejected ticker", zap.String("client", client.ID()), zap.Error(err))
			continue
		}
		accepted = append(accepted, t)
	}

	if len(accepted) == 0 {
		h.sendError(client, req.ID, "No valid tickers provided")
		return
	}

	// The old handle does not see the new tickers; swap before acking.
	// Sequences are cold, so tickers the client already had restart their
	// walks at the start price.
	client.Follow(h.registry.StreamFor(client.ID()))

	h.sendAck(client, req.ID, fmt.Sprintf("Subscribed to %v", accepted), nil)

	go h.sendSnapshots(client, accepted)
}

func (h *Hub) handleList(client ClientInterface, req protocol.WSRequest) {
	tickers := h.registry.Tickers(client.ID())
	if tickers == nil {
		tickers = []string{}
	}
	h.sendAck(client, req.ID, fmt.Sprintf("%d subscriptions", len(tickers)), tickers)
}

func (h *Hub) sendSnapshots(client ClientInterface, tickers []string) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snapshots, err := h.store.GetSnapshots(ctx, tickers)
	if err != nil {
		h.logger.Warn("Snapshot lookup failed", zap.Strings("tickers", tickers), zap.Error(err))
		return
	}
	for _, snap := range snapshots {
		client.SendJSON(protocol.WSResponse{Type: protocol.TypeSnapshot, Data: json.RawMessage(snap)})
	}
}

// Unregister drops a closed connection. Its registry entry stays.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.Close()
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[ClientInterface]bool)
	h.mu.Unlock()

	for c := range clients {
		c.Close()
	}
}

// Stats reports live connections and known client ids.
func (h *Hub) Stats() (connections, clients int) {
	h.mu.RLock()
	connections = len(h.clients)
	h.mu.RUnlock()
	return connections, h.registry.Len()
}

func (h *Hub) sendAck(c ClientInterface, id, msg string, data interface{}) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: "success", Message: msg, Data: data})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}
