package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/nyalabs/nyax/pkg/engine"
)

// Server handles REST API and WebSocket connections
type Server struct {
	engine *engine.Engine
	router *mux.Router
	hub    *Hub // WebSocket hub
}

// NewServer creates a new API server wired to the settlement engine. It
// subscribes itself as an event listener so matches and cancellations reach
// WebSocket subscribers.
func NewServer(e *engine.Engine) *Server {
	s := &Server{
		engine: e,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}

	s.setupRoutes()
	e.Subscribe(s)
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders/hash", s.handleHashOrder).Methods("POST")
	api.HandleFunc("/orders/can-match", s.handleOrdersCanMatch).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/calldata/can-match", s.handleCalldataCanMatch).Methods("POST")
	api.HandleFunc("/match", s.handleMatch).Methods("POST")

	// Fee policy
	api.HandleFunc("/fees", s.handleGetFees).Methods("GET")
	api.HandleFunc("/fees", s.handleSetFees).Methods("POST")

	// Authorization registry
	api.HandleFunc("/authorizations/{principal}", s.handleGetAuthorization).Methods("GET")
	api.HandleFunc("/authorizations", s.handleAuthorizationAction).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	// Start WebSocket hub
	go s.hub.Run()

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleHashOrder(w http.ResponseWriter, r *http.Request) {
	var req HashOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	order, err := req.Order.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}

	orderHash := s.engine.HashOrder(order)
	hashToSign, err := s.engine.HashToSign(order)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute signing digest", err.Error())
		return
	}

	respondJSON(w, HashOrderResponse{
		OrderHash:  orderHash.Hex(),
		HashToSign: hashToSign.Hex(),
	})
}

func (s *Server) handleOrdersCanMatch(w http.ResponseWriter, r *http.Request) {
	var req CanMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	buy, err := req.Buy.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid buy order", err.Error())
		return
	}
	sell, err := req.Sell.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sell order", err.Error())
		return
	}

	respondJSON(w, CanMatchResponse{CanMatch: s.engine.OrdersCanMatch(buy, sell)})
}

func (s *Server) handleCalldataCanMatch(w http.ResponseWriter, r *http.Request) {
	var req CalldataCanMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	buyData, err := parseHexBytes("buyCalldata", req.BuyCalldata)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid calldata", err.Error())
		return
	}
	buyMask, err := parseHexBytes("buyReplacementPattern", req.BuyReplacementPattern)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid calldata", err.Error())
		return
	}
	sellData, err := parseHexBytes("sellCalldata", req.SellCalldata)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid calldata", err.Error())
		return
	}
	sellMask, err := parseHexBytes("sellReplacementPattern", req.SellReplacementPattern)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid calldata", err.Error())
		return
	}

	ok := s.engine.CalldataCanMatch(buyData, buyMask, sellData, sellMask)
	respondJSON(w, CanMatchResponse{CanMatch: ok})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	order, err := req.Order.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid caller", err.Error())
		return
	}
	sig, err := parseHexBytes("signature", req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature", err.Error())
		return
	}

	hash, err := s.engine.Cancel(order, sig, caller)
	if err != nil {
		respondError(w, statusForEngineError(err), "cancel failed", err.Error())
		return
	}

	log.Printf("[api] order cancelled: %s", hash.Hex())
	respondJSON(w, CancelOrderResponse{Status: "cancelled", OrderHash: hash.Hex()})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	buy, err := req.Buy.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid buy order", err.Error())
		return
	}
	sell, err := req.Sell.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sell order", err.Error())
		return
	}
	buySig, err := parseHexBytes("buySignature", req.BuySig)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid buy signature", err.Error())
		return
	}
	sellSig, err := parseHexBytes("sellSignature", req.SellSig)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sell signature", err.Error())
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid caller", err.Error())
		return
	}
	value, err := parseBig("value", req.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid value", err.Error())
		return
	}

	result, err := s.engine.AtomicMatch(engine.MatchInput{
		Buy:     buy,
		Sell:    sell,
		BuySig:  buySig,
		SellSig: sellSig,
		Caller:  caller,
		Value:   value,
	})
	if err != nil {
		respondError(w, statusForEngineError(err), "match failed", err.Error())
		return
	}

	log.Printf("[api] orders matched: buy=%s sell=%s price=%s",
		result.BuyHash.Hex(), result.SellHash.Hex(), result.Price)

	respondJSON(w, MatchResponse{
		Status:       "settled",
		Price:        result.Price.String(),
		BuyHash:      result.BuyHash.Hex(),
		SellHash:     result.SellHash.Hex(),
		FeeRecipient: result.FeeRecipient.Hex(),
	})
}

func (s *Server) handleGetFees(w http.ResponseWriter, r *http.Request) {
	maker, taker := s.engine.FeeRates()
	respondJSON(w, FeesResponse{MakerBps: maker, TakerBps: taker})
}

func (s *Server) handleSetFees(w http.ResponseWriter, r *http.Request) {
	var req SetFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid caller", err.Error())
		return
	}

	switch req.Side {
	case "maker":
		err = s.engine.SetMakerFeeBps(caller, req.Bps)
	case "taker":
		err = s.engine.SetTakerFeeBps(caller, req.Bps)
	default:
		respondError(w, http.StatusBadRequest, "invalid side", "expected maker or taker")
		return
	}
	if err != nil {
		respondError(w, statusForEngineError(err), "fee change rejected", err.Error())
		return
	}

	maker, taker := s.engine.FeeRates()
	respondJSON(w, FeesResponse{MakerBps: maker, TakerBps: taker})
}

func (s *Server) handleGetAuthorization(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	principalStr := vars["principal"]

	if !common.IsHexAddress(principalStr) {
		respondError(w, http.StatusBadRequest, "invalid principal address", "")
		return
	}

	principal := common.HexToAddress(principalStr)
	delegate := s.engine.Address()
	state := s.engine.Authorizations().State(principal, delegate)

	respondJSON(w, AuthStateResponse{
		Principal: principal.Hex(),
		Delegate:  delegate.Hex(),
		State:     state.String(),
	})
}

func (s *Server) handleAuthorizationAction(w http.ResponseWriter, r *http.Request) {
	var req AuthActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if !common.IsHexAddress(req.Principal) {
		respondError(w, http.StatusBadRequest, "invalid principal address", "")
		return
	}
	principal := common.HexToAddress(req.Principal)
	delegate := s.engine.Address()
	authz := s.engine.Authorizations()

	var err error
	switch req.Action {
	case "request":
		err = authz.Request(principal, delegate)
	case "finalize":
		err = authz.Finalize(principal, delegate)
	case "revoke":
		err = authz.Revoke(principal, delegate)
	default:
		respondError(w, http.StatusBadRequest, "invalid action", "expected request, finalize or revoke")
		return
	}
	if err != nil {
		respondError(w, http.StatusConflict, "authorization action failed", err.Error())
		return
	}

	respondJSON(w, AuthStateResponse{
		Principal: principal.Hex(),
		Delegate:  delegate.Hex(),
		State:     authz.State(principal, delegate).String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// handleWebSocket upgrades the connection and hands it to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, 64),
		id:            r.RemoteAddr,
		subscriptions: make(map[string]bool),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// ==============================
// Event listener (engine -> WebSocket)
// ==============================

func (s *Server) OnOrdersMatched(ev engine.OrdersMatched) {
	s.hub.BroadcastToChannel("matches", ev)
}

func (s *Server) OnOrderCancelled(ev engine.OrderCancelled) {
	s.hub.BroadcastToChannel("cancellations", ev)
}

var _ engine.EventListener = (*Server)(nil)

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// statusForEngineError maps engine error classes onto HTTP statuses.
func statusForEngineError(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidOrderParams),
		errors.Is(err, engine.ErrInvalidTarget),
		errors.Is(err, engine.ErrIncompatibleCalldata),
		errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrOverpaymentRejected),
		errors.Is(err, engine.ErrFeeTooHigh):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotAdmin),
		errors.Is(err, engine.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrAlreadyFinalized),
		errors.Is(err, engine.ErrInvalidSignatureOrCancelled),
		errors.Is(err, engine.ErrOrdersNotMatched):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
