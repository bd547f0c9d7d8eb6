package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"bidvault/core/events"
	"bidvault/native/escrow"
	"bidvault/native/ledger"
	"bidvault/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	// AuthTokenEnv names the environment variable carrying the bearer token
	// required for mutating methods.
	AuthTokenEnv = "BIDVAULT_RPC_TOKEN"

	clientRatePerSecond = 10
	clientRateBurst     = 20
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020

	codeEscrowNotFound  = -32022
	codeEscrowForbidden = -32023
	codeEscrowConflict  = -32024
)

// Server exposes the escrow engine and ledger over JSON-RPC 2.0.
type Server struct {
	engine  *escrow.Engine
	ledger  *ledger.Ledger
	logger  *slog.Logger
	metrics *observability.EngineMetrics
	events  *events.Stream

	authToken     string
	faucetEnabled bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer creates an RPC server over the supplied engine and ledger. The
// auth token is read from the BIDVAULT_RPC_TOKEN environment variable; when
// empty, mutating methods are rejected.
func NewServer(engine *escrow.Engine, led *ledger.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		ledger:    led,
		logger:    logger,
		metrics:   observability.Engine(),
		authToken: strings.TrimSpace(os.Getenv(AuthTokenEnv)),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// SetFaucetEnabled toggles the development-only ledger_faucet method.
func (s *Server) SetFaucetEnabled(enabled bool) { s.faucetEnabled = enabled }

// Handler returns the HTTP handler serving the JSON-RPC endpoint so callers
// can mount it on their own router.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type authError struct {
	Code    int
	Message string
	Data    interface{}
}

// requireAuth enforces the bearer token on mutating methods using a
// constant-time comparison.
func (s *Server) requireAuth(r *http.Request) *authError {
	if s.authToken == "" {
		return &authError{Code: codeUnauthorized, Message: "unauthorized", Data: "rpc auth token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &authError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &authError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allow(r *http.Request) bool {
	id := clientID(r)
	s.mu.Lock()
	limiter, ok := s.limiters[id]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(clientRatePerSecond), clientRateBurst)
		s.limiters[id] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.allow(r) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limited", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}

	switch req.Method {
	case "escrow_init":
		s.handleEscrowInit(w, r, req)
	case "escrow_deposit":
		s.handleEscrowDeposit(w, r, req)
	case "escrow_placeBid":
		s.handleEscrowPlaceBid(w, r, req)
	case "escrow_cancelBid":
		s.handleEscrowCancelBid(w, r, req)
	case "escrow_resolveBid":
		s.handleEscrowResolveBid(w, r, req)
	case "escrow_withdraw":
		s.handleEscrowWithdraw(w, r, req)
	case "escrow_get":
		s.handleEscrowGet(w, req)
	case "escrow_getBid":
		s.handleEscrowGetBid(w, req)
	case "ledger_balance":
		s.handleLedgerBalance(w, req)
	case "ledger_transfer":
		s.handleLedgerTransfer(w, r, req)
	case "ledger_faucet":
		s.handleLedgerFaucet(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}
