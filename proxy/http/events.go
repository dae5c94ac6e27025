package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventView is the JSON representation of a new block sent to the
// subscribers.
type EventView struct {
	Index        uint64            `json:"index"`
	Timestamp    uint64            `json:"timestamp"`
	Transactions []TransactionView `json:"transactions"`
}

// streamEvents upgrades the connection to a websocket and sends the receipts of
// every new block until the client leaves or the server stops.
func (h *HTTP) streamEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	defer conn.Close()

	logger := h.logger.With().Str("subscriber", xid.New().String()).Logger()
	logger.Debug().Msg("subscriber joined")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The messages of the client are ignored, but reading is necessary to
	// detect when the connection is closed.
	go func() {
		defer cancel()

		for {
			_, _, err := conn.NextReader()
			if err != nil {
				return
			}
		}
	}()

	h.Lock()
	done := h.done
	h.Unlock()

	events := h.ledger.Watch(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("subscriber left")
			return
		case <-done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopped")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
			return
		case evt := <-events:
			view := EventView{
				Index:        evt.Index,
				Timestamp:    evt.Timestamp,
				Transactions: newTransactionViews(evt.Transactions),
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			err := conn.WriteJSON(view)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to send event")
				return
			}
		}
	}
}
