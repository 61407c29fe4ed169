package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/native/rewards"
	"loyaltyd/native/token"
	"loyaltyd/observability"
)

type mintParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
}

type burnParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
}

type setTransferabilityParams struct {
	Caller       string `json:"caller"`
	Transferable bool   `json:"transferable"`
}

type isBurntParams struct {
	TokenID uint64 `json:"tokenId"`
}

type distributeParams struct {
	Pool string `json:"pool"`
}

type rewardsBalanceParams struct {
	Holder string `json:"holder"`
}

type mintResult struct {
	TokenID uint64 `json:"tokenId"`
}

type transferabilityResult struct {
	Transferable bool `json:"transferable"`
}

type isBurntResult struct {
	TokenID uint64 `json:"tokenId"`
	Burnt   bool   `json:"burnt"`
}

type rewardsBalanceResult struct {
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

func decodeHexAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, errors.New("not a valid hex address")
	}
	return common.HexToAddress(trimmed), nil
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

// errorCode maps module errors to JSON-RPC status and code. Precondition
// failures are the caller's fault; anything unrecognised is a server error.
func errorCode(err error) (int, int) {
	switch {
	case errors.Is(err, token.ErrUnauthorized), errors.Is(err, token.ErrForbidden):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, token.ErrInvalidRecipient),
		errors.Is(err, token.ErrAlreadyBurnt),
		errors.Is(err, rewards.ErrInvalidPool),
		errors.Is(err, rewards.ErrNoTokensMinted):
		return http.StatusBadRequest, codeInvalidParams
	default:
		return http.StatusInternalServerError, codeServerError
	}
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params mintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeHexAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	recipient, err := decodeHexAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	id, err := s.node.Mint(caller, recipient)
	if err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	observability.Loyalty().RecordMint()
	writeResult(w, req.ID, mintResult{TokenID: id})
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params burnParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeHexAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.Burn(caller, params.TokenID); err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	observability.Loyalty().RecordBurn()
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetTransferability(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params setTransferabilityParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeHexAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.SetTransferability(caller, params.Transferable); err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, transferabilityResult{Transferable: params.Transferable})
}

func (s *Server) handleGetTransferability(w http.ResponseWriter, req *RPCRequest) {
	transferable, err := s.node.Transferability()
	if err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, transferabilityResult{Transferable: transferable})
}

func (s *Server) handleIsBurnt(w http.ResponseWriter, req *RPCRequest) {
	var params isBurntParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	burnt, err := s.node.IsBurnt(params.TokenID)
	if err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, isBurntResult{TokenID: params.TokenID, Burnt: burnt})
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params distributeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	pool, ok := new(big.Int).SetString(strings.TrimSpace(params.Pool), 10)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid pool amount", nil)
		return
	}
	if err := s.node.Distribute(pool); err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	observability.Loyalty().RecordDistribution(pool)
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetRewardsBalance(w http.ResponseWriter, req *RPCRequest) {
	var params rewardsBalanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	holder, err := decodeHexAddress(params.Holder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid holder address", err.Error())
		return
	}
	balance, err := s.node.RewardsBalance(holder)
	if err != nil {
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, rewardsBalanceResult{Holder: holder.Hex(), Balance: balance.String()})
}
