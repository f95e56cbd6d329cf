package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/tickstream/pkg/models"
	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

const (
	maxMessageSize    = 512 * 1024
	defaultSendBuffer = 256
)

type ClientAdapter struct {
	conn      net.Conn
	hub       *hub.Hub
	id        string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger

	mu         sync.Mutex
	stopStream context.CancelFunc

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger, id string, sendBuffer int) *ClientAdapter {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &ClientAdapter{
		conn:       conn,
		hub:        h,
		id:         id,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("client", id)),
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

func (c *ClientAdapter) Start() {
	go c.writePump()
	c.hub.Register(c)
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.id }

// Close stops tick forwarding and tells writePump to close the connection.
func (c *ClientAdapter) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.stopStream != nil {
			c.stopStream()
		}
		c.mu.Unlock()
	})
}

// Follow cancels the sequence currently being forwarded, which stops its
// generators, and starts forwarding seq.
func (c *ClientAdapter) Follow(seq tickgen.Sequence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
	}

	if c.stopStream != nil {
		c.stopStream()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopStream = cancel
	go c.forward(seq.Stream(ctx))
}

func (c *ClientAdapter) forward(ticks <-chan models.Stock) {
	for tick := range ticks {
		b, err := json.Marshal(protocol.WSResponse{Type: protocol.TypeTick, Data: tick})
		if err != nil {
			c.logger.Error("Tick marshal failed", zap.Error(err))
			continue
		}
		c.SendBytes(b)
	}
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Response marshal failed", zap.Error(err))
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	}
}

func (c *ClientAdapter) SendBytes(b []byte) {
	select {
	case c.send <- b:
	default:
		// Drop message if buffer full (Backpressure)
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			break
		}

		if header.Length > int64(maxMessageSize) {
			c.logger.Warn("Msg too big", zap.Int64("size", header.Length))
			break
		}

		if !header.Fin {
			c.logger.Warn("Client sent fragmented message (not supported)")
			break
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			break
		}

		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpText:
			var req protocol.WSRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, Message: "Invalid JSON"})
				continue
			}

			for i, s := range req.Payload.Tickers {
				req.Payload.Tickers[i] = strings.ToUpper(strings.TrimSpace(s))
			}

			c.hub.HandleCommand(c, req)
		}
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.Write(ws.CompiledClose)
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
