/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"
	"github.com/akshayp9/batch-distributor-dual-sig/crypto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// CallerSignatureHeader carries the caller's signature over the keccak256 of
// the request body. The node recovers the caller identity from it before
// checking capabilities.
const CallerSignatureHeader = "X-Caller-Signature"

// SignRequestBody produces the header value authenticating body as coming
// from signer.
func SignRequestBody(signer *crypto.Signer, body []byte) (string, error) {
	sig, err := signer.Sign(ethcrypto.Keccak256Hash(body))
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// BatchStatus is the node's answer to a batch query.
type BatchStatus struct {
	Executed bool             `json:"executed"`
	Record   *ExecutionRecord `json:"record,omitempty"`
}

// NodeClient submits payloads to a distributor node over HTTP.
type NodeClient struct {
	baseURL string
	signer  *crypto.Signer
	httpc   *http.Client
}

// NewNodeClient creates a client for the node at baseURL. The signer is the
// caller identity; it must hold the verifier capability for the token path
// and the admin capability for the native path.
func NewNodeClient(baseURL string, signer *crypto.Signer) *NodeClient {
	return &NodeClient{baseURL: baseURL, signer: signer, httpc: &http.Client{}}
}

// Execute submits a signed token batch for dual-signature execution.
func (n *NodeClient) Execute(ctx context.Context, p *BatchPayload) (*ExecutionRecord, error) {
	var record ExecutionRecord
	if err := n.post(ctx, "/api/v1/batches/execute", p, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ExecuteNative submits a native coin batch.
func (n *NodeClient) ExecuteNative(ctx context.Context, p *NativeBatchPayload) (*ExecutionRecord, error) {
	var record ExecutionRecord
	if err := n.post(ctx, "/api/v1/batches/execute-native", p, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// BatchStatus queries whether a batch id was executed.
func (n *NodeClient) BatchStatus(ctx context.Context, id types.BatchID) (*BatchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/api/v1/batches/"+id.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := n.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "query batch")
	}
	defer resp.Body.Close()

	var status BatchStatus
	if err := decodeResponse(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Pause blocks execution on the node. Admin capability.
func (n *NodeClient) Pause(ctx context.Context) error {
	return n.post(ctx, "/api/v1/admin/pause", struct{}{}, &okResponse{})
}

// Unpause re-enables execution. Admin capability.
func (n *NodeClient) Unpause(ctx context.Context) error {
	return n.post(ctx, "/api/v1/admin/unpause", struct{}{}, &okResponse{})
}

// SetTokenWhitelisted adds or removes a token from the allow-list. Admin
// capability.
func (n *NodeClient) SetTokenWhitelisted(ctx context.Context, token common.Address, allowed bool) error {
	req := struct {
		Token   common.Address `json:"token"`
		Allowed bool           `json:"allowed"`
	}{Token: token, Allowed: allowed}
	return n.post(ctx, "/api/v1/admin/whitelist", &req, &okResponse{})
}

// SetMaxBatchSize updates the batch size cap. Admin capability.
func (n *NodeClient) SetMaxBatchSize(ctx context.Context, size int) error {
	req := struct {
		MaxBatchSize int `json:"maxBatchSize"`
	}{MaxBatchSize: size}
	return n.post(ctx, "/api/v1/admin/max-batch-size", &req, &okResponse{})
}

func (n *NodeClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	if n.signer != nil {
		auth, err := SignRequestBody(n.signer, body)
		if err != nil {
			return errors.Wrap(err, "sign request")
		}
		req.Header.Set(CallerSignatureHeader, auth)
	}

	resp, err := n.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "post %s", path)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		var nodeErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &nodeErr) == nil && nodeErr.Error != "" {
			return errors.Errorf("node rejected request: %s (status %d)", nodeErr.Error, resp.StatusCode)
		}
		return errors.Errorf("node returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
