package gateway

import (
	"net/http"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/hub"
)

// ClientIDParam lets a reconnecting session pick up its subscriptions.
const ClientIDParam = "client_id"

// NewHandler upgrades /ws requests and attaches each connection to h.
func NewHandler(h *hub.Hub, logger *zap.Logger, sendBuffer int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get(ClientIDParam)
		if id == "" {
			id = uuid.NewString()
		}

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Debug("Upgrade failed", zap.Error(err))
			return
		}

		NewClient(conn, h, logger, id, sendBuffer).Start()
	}
}
