package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bidvault/crypto"
	"bidvault/native/amount"
	"bidvault/native/escrow"
)

type escrowInitParams struct {
	Owner          string `json:"owner"`
	InitialDeposit uint64 `json:"initialDeposit"`
}

type escrowFundsParams struct {
	Owner  string `json:"owner"`
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

type escrowPlaceBidParams struct {
	Owner  string `json:"owner"`
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

type escrowBidActionParams struct {
	Owner  string `json:"owner"`
	BidID  string `json:"bidId"`
	Caller string `json:"caller"`
}

type escrowGetParams struct {
	Owner string `json:"owner"`
}

type escrowGetBidParams struct {
	BidID string `json:"bidId"`
}

type escrowJSON struct {
	Owner     string `json:"owner"`
	Deposited uint64 `json:"deposited"`
	Locked    uint64 `json:"locked"`
	Available uint64 `json:"available"`
	CreatedAt int64  `json:"createdAt"`
}

type bidJSON struct {
	ID        string `json:"id"`
	Escrow    string `json:"escrow"`
	Bidder    string `json:"bidder"`
	Amount    uint64 `json:"amount"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"createdAt"`
}

func escrowToJSON(esc *escrow.Escrow) *escrowJSON {
	if esc == nil {
		return nil
	}
	available, err := esc.Available()
	if err != nil {
		available = 0
	}
	return &escrowJSON{
		Owner:     crypto.NewAddress(crypto.VaultPrefix, esc.Owner[:]).String(),
		Deposited: esc.DepositedAmount,
		Locked:    esc.LockedAmount,
		Available: available,
		CreatedAt: esc.CreatedAt,
	}
}

func bidToJSON(bid *escrow.Bid) *bidJSON {
	if bid == nil {
		return nil
	}
	return &bidJSON{
		ID:        hex.EncodeToString(bid.ID[:]),
		Escrow:    crypto.NewAddress(crypto.VaultPrefix, bid.Escrow[:]).String(),
		Bidder:    crypto.NewAddress(crypto.VaultPrefix, bid.Bidder[:]).String(),
		Amount:    bid.Amount,
		Active:    bid.Active,
		CreatedAt: bid.CreatedAt,
	}
}

func parseAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, fmt.Errorf("invalid %s address: %w", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseBidID(value string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return out, fmt.Errorf("invalid bid id: %w", err)
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("bid id must be 32 bytes (got %d)", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

func decodeSingleParam(req *RPCRequest, target interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], target)
}

// escrowErrorCode maps engine failures onto JSON-RPC error codes.
func escrowErrorCode(err error) int {
	switch {
	case errors.Is(err, escrow.ErrNotFound), errors.Is(err, escrow.ErrBidNotFound):
		return codeEscrowNotFound
	case errors.Is(err, escrow.ErrUnauthorized):
		return codeEscrowForbidden
	case errors.Is(err, escrow.ErrAlreadyExists),
		errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, escrow.ErrBidNotActive),
		errors.Is(err, escrow.ErrBidMismatch),
		errors.Is(err, escrow.ErrTransferFailed),
		errors.Is(err, amount.ErrOverflow),
		errors.Is(err, amount.ErrUnderflow):
		return codeEscrowConflict
	default:
		return codeServerError
	}
}

func escrowErrorStatus(code int) int {
	switch code {
	case codeEscrowNotFound:
		return http.StatusNotFound
	case codeEscrowForbidden:
		return http.StatusForbidden
	case codeEscrowConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEscrowError(w http.ResponseWriter, id interface{}, operation string, err error) {
	code := escrowErrorCode(err)
	s.logger.Warn("escrow operation failed",
		slog.String("operation", operation),
		slog.Any("error", err))
	writeError(w, escrowErrorStatus(code), id, code, err.Error(), nil)
}

func (s *Server) handleEscrowInit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowInitParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	esc, err := s.engine.Init(owner, params.InitialDeposit)
	s.metrics.Observe("init", start, err)
	if err != nil {
		s.writeEscrowError(w, req.ID, "init", err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowFundsParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	err = s.engine.Deposit(owner, caller, params.Amount)
	s.metrics.Observe("deposit", start, err)
	if err != nil {
		s.writeEscrowError(w, req.ID, "deposit", err)
		return
	}
	esc, err := s.engine.Get(owner)
	if err != nil {
		s.writeEscrowError(w, req.ID, "deposit", err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowPlaceBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowPlaceBidParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress("bidder", params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	bid, err := s.engine.PlaceBid(owner, bidder, params.Amount)
	s.metrics.Observe("place_bid", start, err)
	if err != nil {
		s.writeEscrowError(w, req.ID, "place_bid", err)
		return
	}
	writeResult(w, req.ID, bidToJSON(bid))
}

func (s *Server) handleEscrowCancelBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowBidActionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bidID, err := parseBidID(params.BidID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	err = s.engine.CancelBid(owner, bidID, caller)
	s.metrics.Observe("cancel_bid", start, err)
	if err != nil {
		s.writeEscrowError(w, req.ID, "cancel_bid", err)
		return
	}
	bid, err := s.engine.GetBid(bidID)
	if err != nil {
		s.writeEscrowError(w, req.ID, "cancel_bid", err)
		return
	}
	writeResult(w, req.ID, bidToJSON(bid))
}

func (s *Server) handleEscrowResolveBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowBidActionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bidID, err := parseBidID(params.BidID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	err = s.engine.ResolveBid(owner, bidID, caller)
	s.metrics.Observe("resolve_bid", start, err)
	if err != nil {
		s.writeEscrowError(w, req.ID, "resolve_bid", err)
		return
	}
	bid, err := s.engine.GetBid(bidID)
	if err != nil {
		s.writeEscrowError(w, req.ID, "resolve_bid", err)
		return
	}
	writeResult(w, req.ID, bidToJSON(bid))
}

func (s *Server) handleEscrowWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowFundsParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	err = s.engine.Withdraw(owner, caller, params.Amount)
	s.metrics.Observe("withdraw", start, err)
	if err != nil {
		s.writeEscrowError(w, req.ID, "withdraw", err)
		return
	}
	esc, err := s.engine.Get(owner)
	if err != nil {
		s.writeEscrowError(w, req.ID, "withdraw", err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, req *RPCRequest) {
	var params escrowGetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	esc, err := s.engine.Get(owner)
	if err != nil {
		s.writeEscrowError(w, req.ID, "get", err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowGetBid(w http.ResponseWriter, req *RPCRequest) {
	var params escrowGetBidParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bidID, err := parseBidID(params.BidID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bid, err := s.engine.GetBid(bidID)
	if err != nil {
		s.writeEscrowError(w, req.ID, "get_bid", err)
		return
	}
	writeResult(w, req.ID, bidToJSON(bid))
}
