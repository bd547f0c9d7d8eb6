package rpc

import (
	"errors"
	"net/http"

	"bidvault/crypto"
	"bidvault/native/ledger"
)

type ledgerBalanceParams struct {
	Address string `json:"address"`
}

type ledgerTransferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type ledgerFaucetParams struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func (s *Server) handleLedgerBalance(w http.ResponseWriter, req *RPCRequest) {
	var params ledgerBalanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.ledger.Balance(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address: crypto.NewAddress(crypto.VaultPrefix, addr[:]).String(),
		Balance: balance,
	})
}

func (s *Server) handleLedgerTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params ledgerTransferParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.Transfer(from, to, params.Amount); err != nil {
		status := http.StatusInternalServerError
		code := codeServerError
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			status = http.StatusConflict
			code = codeEscrowConflict
		}
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	balance, err := s.ledger.Balance(from)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address: crypto.NewAddress(crypto.VaultPrefix, from[:]).String(),
		Balance: balance,
	})
}

// handleLedgerFaucet mints development funds. The method is rejected unless
// the deployment explicitly enables the faucet.
func (s *Server) handleLedgerFaucet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.faucetEnabled {
		writeError(w, http.StatusForbidden, req.ID, codeEscrowForbidden, "faucet disabled", nil)
		return
	}
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params ledgerFaucetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.Mint(to, params.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	balance, err := s.ledger.Balance(to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address: crypto.NewAddress(crypto.VaultPrefix, to[:]).String(),
		Balance: balance,
	})
}
