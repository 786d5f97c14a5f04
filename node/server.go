/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package node exposes the distributor engine over HTTP: the two execution
// entrypoints, the read-only preview helpers and the thin administrative
// surface. The boundary authenticates every mutating request by recovering
// the caller identity from a signature over the request body, then checks
// the capability that identity holds before invoking the engine.
package node

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/akshayp9/batch-distributor-dual-sig/client"
	"github.com/akshayp9/batch-distributor-dual-sig/common/types"
	"github.com/akshayp9/batch-distributor-dual-sig/core"
	"github.com/akshayp9/batch-distributor-dual-sig/crypto"
	"github.com/akshayp9/batch-distributor-dual-sig/ledger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Server is the distributor node boundary.
type Server struct {
	engine    *core.Engine
	db        *ledger.ExecutedBatchDB
	verifiers map[common.Address]struct{}
	admins    map[common.Address]struct{}
	logger    types.Logger
	accessLog io.Writer
}

func NewServer(
	engine *core.Engine,
	db *ledger.ExecutedBatchDB,
	verifiers []common.Address,
	admins []common.Address,
	logger types.Logger,
	accessLog io.Writer,
) *Server {
	s := &Server{
		engine:    engine,
		db:        db,
		verifiers: make(map[common.Address]struct{}),
		admins:    make(map[common.Address]struct{}),
		logger:    logger,
		accessLog: accessLog,
	}
	for _, v := range verifiers {
		s.verifiers[v] = struct{}{}
	}
	for _, a := range admins {
		s.admins[a] = struct{}{}
	}
	return s
}

// Handler returns the full HTTP handler, wrapped in access logging and panic
// recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/batches/execute", s.handleExecute)
	mux.HandleFunc("POST /api/v1/batches/execute-native", s.handleExecuteNative)
	mux.HandleFunc("GET /api/v1/batches/{id}", s.handleBatchStatus)
	mux.HandleFunc("POST /api/v1/digest", s.handleDigest)
	mux.HandleFunc("POST /api/v1/recover", s.handleRecover)
	mux.HandleFunc("POST /api/v1/admin/pause", s.adminHandler(func(*adminRequest) { s.engine.Policy().Pause() }))
	mux.HandleFunc("POST /api/v1/admin/unpause", s.adminHandler(func(*adminRequest) { s.engine.Policy().Unpause() }))
	mux.HandleFunc("POST /api/v1/admin/whitelist", s.adminHandler(func(req *adminRequest) {
		if req.Allowed {
			s.engine.Policy().AllowToken(req.Token)
		} else {
			s.engine.Policy().RevokeToken(req.Token)
		}
	}))
	mux.HandleFunc("POST /api/v1/admin/max-batch-size", s.adminHandler(func(req *adminRequest) {
		s.engine.Policy().SetMaxBatchSize(req.MaxBatchSize)
	}))

	var h http.Handler = mux
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	if s.accessLog != nil {
		h = handlers.CombinedLoggingHandler(s.accessLog, h)
	}
	return h
}

// Serve runs the node on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		ReadTimeout: 30 * time.Second,
		Handler:     s.Handler(),
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infof("Distributor node serving on %s", listener.Addr())
		defer s.logger.Infof("Distributor node stopped serving")
		return server.Serve(listener)
	})

	stopAfter := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("Failed shutting down node server: %v", err)
		}
	})
	defer stopAfter()

	if err := g.Wait(); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "node server stopped with an error")
	}
	return nil
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, caller, ok := s.authenticate(w, r, s.verifiers)
	if !ok {
		return
	}
	var payload client.BatchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode payload"))
		return
	}

	event, err := s.engine.ExecuteDualSig(caller, payload.Batch(), payload.Submitter, payload.SubmitterSig)
	if err != nil {
		s.logger.Warnf("Rejected batch %s from %s: %v", payload.BatchID, caller, err)
		writeError(w, statusFor(err), err)
		return
	}
	record := client.RecordFromEvent(event)
	writeJSON(w, &record)
}

func (s *Server) handleExecuteNative(w http.ResponseWriter, r *http.Request) {
	body, caller, ok := s.authenticate(w, r, s.admins)
	if !ok {
		return
	}
	var payload client.NativeBatchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode payload"))
		return
	}

	var value *big.Int
	if payload.Value != nil {
		value = payload.Value.ToInt()
	}
	event, err := s.engine.ExecuteNative(caller, payload.Batch(), value)
	if err != nil {
		s.logger.Warnf("Rejected native batch %s from %s: %v", payload.BatchID, caller, err)
		writeError(w, statusFor(err), err)
		return
	}
	record := client.RecordFromEvent(event)
	writeJSON(w, &record)
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := types.BatchIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	event, executed, err := s.db.Record(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := client.BatchStatus{Executed: executed}
	if executed {
		record := client.RecordFromEvent(event)
		status.Record = &record
	}
	writeJSON(w, &status)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	var payload client.BatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode payload"))
		return
	}
	digest, err := s.engine.Digest(payload.Batch())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, &struct {
		Digest common.Hash `json:"digest"`
	}{Digest: digest})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Digest    common.Hash   `json:"digest"`
		Signature hexutil.Bytes `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return
	}
	signer, err := crypto.RecoverSigner(req.Digest, req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, &struct {
		Signer common.Address `json:"signer"`
	}{Signer: signer})
}

type adminRequest struct {
	Token        common.Address `json:"token"`
	Allowed      bool           `json:"allowed"`
	MaxBatchSize int            `json:"maxBatchSize"`
}

func (s *Server) adminHandler(apply func(*adminRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _, ok := s.authenticate(w, r, s.admins)
		if !ok {
			return
		}
		req := &adminRequest{}
		if len(body) > 0 {
			if err := json.Unmarshal(body, req); err != nil {
				writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
				return
			}
		}
		apply(req)
		writeJSON(w, &struct {
			OK bool `json:"ok"`
		}{OK: true})
	}
}

// authenticate reads the body, recovers the caller from the signature header
// and checks the capability. On failure it writes the response itself and
// returns ok=false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, capability map[common.Address]struct{}) ([]byte, common.Address, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return nil, common.Address{}, false
	}

	header := r.Header.Get(client.CallerSignatureHeader)
	if header == "" {
		writeError(w, http.StatusUnauthorized, errors.Errorf("missing %s header", client.CallerSignatureHeader))
		return nil, common.Address{}, false
	}
	sig, err := hexutil.Decode(header)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.Wrap(err, "decode caller signature"))
		return nil, common.Address{}, false
	}
	caller, err := crypto.RecoverSigner(ethcrypto.Keccak256Hash(body), sig)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return nil, common.Address{}, false
	}
	if _, ok := capability[caller]; !ok {
		writeError(w, http.StatusForbidden, errors.Errorf("caller %s lacks the required capability", caller))
		return nil, common.Address{}, false
	}
	return body, caller, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrBatchAlreadyExecuted):
		return http.StatusConflict
	case errors.Is(err, core.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidSigner),
		errors.Is(err, core.ErrSameSubmitterAndExecutor),
		errors.Is(err, crypto.ErrInvalidSignature):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}
