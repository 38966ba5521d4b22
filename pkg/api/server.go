// Package api is the HTTP admission boundary: makers POST signed orders,
// takers GET the mirror and subscribe to order updates over websocket.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/orderwatch/pkg/store"
	"github.com/uhyunpark/orderwatch/pkg/watcher"
	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

// Server handles REST API and WebSocket connections
type Server struct {
	watcher *watcher.Watcher
	store   store.OrderStore
	router  *mux.Router
	hub     *Hub
	origins []string
	log     *zap.SugaredLogger
}

// NewServer creates a new API server and hooks the hub into the engine's
// mutation stream.
func NewServer(w *watcher.Watcher, st store.OrderStore, allowedOrigins []string, lg *zap.SugaredLogger) *Server {
	s := &Server{
		watcher: w,
		store:   st,
		router:  mux.NewRouter(),
		hub:     NewHub(lg),
		origins: allowedOrigins,
		log:     lg,
	}
	s.setupRoutes()

	w.SetListener(func(saved []*store.OrderEntity, removed []string) {
		if len(saved) > 0 {
			s.hub.Broadcast(OrderUpdate{Channel: "orders", Action: "saved", Orders: saved})
		}
		if len(removed) > 0 {
			s.hub.Broadcast(OrderUpdate{Channel: "orders", Action: "removed", Hashes: removed})
		}
	})
	return s
}

func (s *Server) setupRoutes() {
	// The POST receiver for the 0x API `POST orderbook/v1/order` relay.
	s.router.HandleFunc("/orders", s.handleSubmitOrders).Methods("POST")
	s.router.HandleFunc("/orders", s.handleGetOrders).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/ping", s.handlePing).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleSubmitOrders(w http.ResponseWriter, r *http.Request) {
	var submitted []*zeroex.SignedLimitOrder
	if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
		respondError(w, http.StatusBadRequest, "malformed order payload", err.Error())
		return
	}
	if len(submitted) == 0 {
		respondError(w, http.StatusBadRequest, "empty order payload", "")
		return
	}

	if err := s.watcher.AdmitOrders(r.Context(), submitted); err != nil {
		var reject *watcher.RejectError
		if errors.As(err, &reject) {
			s.log.Warnw("orders_rejected", "err", reject)
			respondJSON(w, http.StatusBadRequest, RejectResponse{
				Error:     "order submission rejected",
				Invalid:   reject.Invalid,
				Cancelled: reject.Cancelled,
				Expired:   reject.Expired,
				Filled:    reject.Filled,
			})
			return
		}
		s.log.Errorw("order_submission_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "order validation failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"accepted": len(submitted)})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	entities, err := s.store.FindAll(r.Context())
	if err != nil {
		s.log.Errorw("list_orders_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to list orders", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Total: len(entities), Records: entities})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"msg": "pong"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	respondJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}
