package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"storychain/native/registry"
)

type registryMintParams struct {
	Caller         string `json:"caller"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AudioCID       string `json:"audioCid"`
	ImageCID       string `json:"imageCid"`
	RoyaltyPercent int64  `json:"royaltyPercent"`
}

type registryTransferParams struct {
	Caller    string `json:"caller"`
	TokenID   uint64 `json:"tokenId"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

type registryTipParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Amount  string `json:"amount"`
}

type tokenIDParams struct {
	TokenID uint64 `json:"tokenId"`
}

type registryMintResult struct {
	TokenID uint64 `json:"tokenId"`
}

type registryStoryResult struct {
	TokenID        uint64 `json:"tokenId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AudioCID       string `json:"audioCid"`
	ImageCID       string `json:"imageCid"`
	Creator        string `json:"creator"`
	RoyaltyPercent uint8  `json:"royaltyPercent"`
	MintedAt       int64  `json:"mintedAt"`
}

type registryOwnerResult struct {
	TokenID uint64 `json:"tokenId"`
	Owner   string `json:"owner"`
}

type registryCounterResult struct {
	LastTokenID uint64 `json:"lastTokenId"`
}

type registryTokenURIResult struct {
	TokenID uint64 `json:"tokenId"`
	URI     string `json:"uri"`
}

func formatStory(story *registry.Story) registryStoryResult {
	return registryStoryResult{
		TokenID:        story.TokenID,
		Title:          story.Title,
		Description:    story.Description,
		AudioCID:       hex.EncodeToString(story.AudioCID),
		ImageCID:       hex.EncodeToString(story.ImageCID),
		Creator:        formatAddress(story.Creator),
		RoyaltyPercent: story.RoyaltyPercent,
		MintedAt:       story.MintedAt,
	}
}

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func decodeCID(field, value string) ([]byte, *RPCError) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid " + field, Data: err.Error()}
	}
	return decoded, nil
}

func (s *Server) handleRegistryMint(w http.ResponseWriter, req *RPCRequest) {
	var params registryMintParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	audioCID, rpcErr := decodeCID("audioCid", params.AudioCID)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	imageCID, rpcErr := decodeCID("imageCid", params.ImageCID)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	// The wire type is signed, so the lower royalty bound is checked here
	// before narrowing; the engine enforces the upper bound again.
	if params.RoyaltyPercent < 0 || params.RoyaltyPercent > registry.MaxRoyaltyPercent {
		writeRegistryError(w, req.ID, registry.ErrInvalidStory)
		return
	}
	tokenID, err := s.node.RegistryMint(callerAddr, params.Title, params.Description, audioCID, imageCID, uint8(params.RoyaltyPercent))
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryMintResult{TokenID: tokenID})
}

func (s *Server) handleRegistryTransfer(w http.ResponseWriter, req *RPCRequest) {
	var params registryTransferParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	senderAddr, err := decodeBech32(params.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid sender address", err.Error())
		return
	}
	recipientAddr, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	if err := s.node.RegistryTransfer(callerAddr, params.TokenID, senderAddr, recipientAddr); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRegistryTip(w http.ResponseWriter, req *RPCRequest) {
	var params registryTipParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.RegistryTip(callerAddr, params.TokenID, amount); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRegistryGetStory(w http.ResponseWriter, req *RPCRequest) {
	var params tokenIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	story, ok, err := s.node.RegistryStory(params.TokenID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "story lookup failed", err.Error())
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, formatStory(story))
}

func (s *Server) handleRegistryGetOwner(w http.ResponseWriter, req *RPCRequest) {
	var params tokenIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	owner, ok, err := s.node.RegistryOwner(params.TokenID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "owner lookup failed", err.Error())
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, registryOwnerResult{TokenID: params.TokenID, Owner: formatAddress(owner)})
}

func (s *Server) handleRegistryGetLastTokenID(w http.ResponseWriter, req *RPCRequest) {
	last, err := s.node.RegistryLastTokenID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "counter lookup failed", err.Error())
		return
	}
	writeResult(w, req.ID, registryCounterResult{LastTokenID: last})
}

func (s *Server) handleRegistryGetTokenURI(w http.ResponseWriter, req *RPCRequest) {
	var params tokenIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	uri := s.node.RegistryTokenURI(params.TokenID)
	writeResult(w, req.ID, registryTokenURIResult{TokenID: params.TokenID, URI: uri})
}
