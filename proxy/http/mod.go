// Package http implements a proxy that exposes the state of the voting
// contract, the blocks and the submission of transactions over HTTP.
//
// The routes are served by a gin engine under /api, with a websocket at
// /api/events that streams the receipts of the new blocks, and the Prometheus
// collectors of the node at /metrics.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/ordering"
	"go.dedis.ch/ballot/core/ordering/serial/types"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"golang.org/x/xerrors"
)

const shutdownTimeout = 10 * time.Second

var promRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ballot_http_requests_total",
	Help: "number of requests served by the proxy",
}, []string{"route", "status"})

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promRequests)

	gin.SetMode(gin.ReleaseMode)
}

// Ledger is the part of the ordering service the proxy is serving.
type Ledger interface {
	ordering.Service

	GetBlock(index uint64) (types.Block, error)
}

// HTTP is a proxy that serves the API of the ledger.
//
// - implements proxy.Proxy
type HTTP struct {
	sync.Mutex

	ledger     Ledger
	txFac      txn.Factory
	engine     *gin.Engine
	server     *http.Server
	listener   net.Listener
	listenAddr string
	logger     zerolog.Logger

	// done is closed when the server stops, which closes the event streams.
	done chan struct{}
	wg   sync.WaitGroup
}

// NewHTTP creates a new proxy for the ledger that will listen on the address.
func NewHTTP(listenAddr string, ledger Ledger) *HTTP {
	h := &HTTP{
		ledger:     ledger,
		txFac:      signed.NewTransactionFactory(),
		listenAddr: listenAddr,
		logger:     ballot.Logger.With().Str("role", "http proxy").Logger(),
	}

	h.engine = h.makeEngine()

	return h
}

// ServeHTTP implements http.Handler.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

// Listen implements proxy.Proxy. It opens the listener and serves the requests
// in the background.
func (h *HTTP) Listen() error {
	h.Lock()
	defer h.Unlock()

	if h.listener != nil {
		return xerrors.New("server already running")
	}

	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return xerrors.Errorf("failed to listen on %s: %v", h.listenAddr, err)
	}

	h.listener = ln
	h.done = make(chan struct{})
	h.server = &http.Server{
		Handler:           h.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		err := h.server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			h.logger.Err(err).Msg("server stopped unexpectedly")
		}
	}()

	h.logger.Info().Str("addr", ln.Addr().String()).Msg("server is ready to handle requests")

	return nil
}

// Stop implements proxy.Proxy. It gracefully shuts down the server.
func (h *HTTP) Stop() error {
	h.Lock()
	defer h.Unlock()

	if h.server == nil {
		return nil
	}

	close(h.done)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := h.server.Shutdown(ctx)

	h.wg.Wait()

	h.server = nil
	h.listener = nil

	if err != nil {
		return xerrors.Errorf("failed to shutdown: %v", err)
	}

	h.logger.Info().Msg("server stopped")

	return nil
}

// GetAddr implements proxy.Proxy.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.listener == nil {
		return nil
	}

	return h.listener.Addr()
}

func (h *HTTP) makeEngine() *gin.Engine {
	engine := gin.New()

	engine.Use(gin.Recovery(), tracing(), logging(h.logger), metrics())

	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:   []string{"Content-Length", requestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	registry := prometheus.NewRegistry()
	for _, c := range ballot.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to register collector")
		}
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := engine.Group("/api")

	api.GET("/owner", h.getOwner)

	api.GET("/users/pending", h.getPendingUsers)
	api.GET("/users/:address", h.getUser)
	api.GET("/users/:address/candidacy", h.getCandidacy)

	api.GET("/candidates", h.getCandidates)
	api.GET("/candidates/pending", h.getPendingCandidates)
	api.GET("/candidates/:id", h.getCandidate)

	api.GET("/elections", h.getElections)
	api.GET("/elections/:id", h.getElection)
	api.GET("/elections/:id/results", h.getResults)
	api.GET("/elections/:id/voters/:address", h.getVoter)

	api.POST("/transactions", h.addTransaction)
	api.GET("/blocks/:index", h.getBlock)

	api.GET("/events", h.streamEvents)

	return engine
}
