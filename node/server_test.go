/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akshayp9/batch-distributor-dual-sig/backend"
	"github.com/akshayp9/batch-distributor-dual-sig/client"
	"github.com/akshayp9/batch-distributor-dual-sig/common/types"
	"github.com/akshayp9/batch-distributor-dual-sig/core"
	dcrypto "github.com/akshayp9/batch-distributor-dual-sig/crypto"
	"github.com/akshayp9/batch-distributor-dual-sig/ledger"
	"github.com/akshayp9/batch-distributor-dual-sig/node"
	"github.com/akshayp9/batch-distributor-dual-sig/testutil"
	"github.com/akshayp9/batch-distributor-dual-sig/typeddata"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testToken    = common.HexToAddress("0x0000000000000000000000000000000000000070")
	testTreasury = common.HexToAddress("0x000000000000000000000000000000000000007e")
)

type nodeFixture struct {
	server       *node.Server
	httpServer   *httptest.Server
	backend      *backend.Memory
	companion    *client.Companion
	verifier     *dcrypto.Signer
	admin        *dcrypto.Signer
	verifierAddr common.Address
	adminAddr    common.Address
}

func newNodeFixture(t *testing.T) *nodeFixture {
	logger := testutil.CreateLogger(t, "node")

	db, err := ledger.NewExecutedBatchDB(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	be := backend.NewMemory()
	be.Mint(testToken, testTreasury, big.NewInt(1_000_000))

	policy := core.NewPolicy(500, false)
	policy.AllowToken(testToken)

	domain := typeddata.Domain{
		ChainID:           big.NewInt(1337),
		VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000d1"),
	}
	engine := core.NewEngine(domain, policy, db, be, testTreasury, &core.LogSink{Logger: logger}, logger)

	submitterKey, _ := testutil.GenerateKey(t)
	verifierKey, verifierAddr := testutil.GenerateKey(t)
	adminKey, adminAddr := testutil.GenerateKey(t)

	srv := node.NewServer(engine, db, []common.Address{verifierAddr}, []common.Address{adminAddr}, logger, nil)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	return &nodeFixture{
		server:       srv,
		httpServer:   httpServer,
		backend:      be,
		companion:    client.NewCompanion(domain).WithSigner(dcrypto.NewSigner(submitterKey)),
		verifier:     dcrypto.NewSigner(verifierKey),
		admin:        dcrypto.NewSigner(adminKey),
		verifierAddr: verifierAddr,
		adminAddr:    adminAddr,
	}
}

func (f *nodeFixture) signedPayload(t *testing.T, suffix byte) *client.BatchPayload {
	payload, err := f.companion.NewPayload(
		testutil.BatchIDWithSuffix(suffix),
		testToken,
		testutil.Recipients(2),
		[]*big.Int{big.NewInt(100), big.NewInt(200)},
		uint64(time.Now().Add(time.Hour).Unix()),
	)
	require.NoError(t, err)
	require.NoError(t, f.companion.Sign(payload))
	return payload
}

func TestExecuteEndToEnd(t *testing.T) {
	f := newNodeFixture(t)
	payload := f.signedPayload(t, 0x01)

	nodeClient := client.NewNodeClient(f.httpServer.URL, f.verifier)
	record, err := nodeClient.Execute(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, payload.BatchID, record.BatchID)
	assert.Equal(t, 2, record.RecipientCount)
	assert.Equal(t, big.NewInt(300), record.TotalAmount.ToInt())
	assert.Equal(t, payload.Submitter, record.Submitter)
	assert.Equal(t, f.verifierAddr, record.Executor)

	b, err := f.backend.BalanceOf(testToken, payload.Recipients[1])
	require.NoError(t, err)
	assert.Equal(t, int64(200), b.Int64())

	status, err := nodeClient.BatchStatus(context.Background(), payload.BatchID)
	require.NoError(t, err)
	assert.True(t, status.Executed)
	require.NotNil(t, status.Record)
	assert.Equal(t, big.NewInt(300), status.Record.TotalAmount.ToInt())
}

func TestExecuteReplayRejected(t *testing.T) {
	f := newNodeFixture(t)
	payload := f.signedPayload(t, 0x02)

	nodeClient := client.NewNodeClient(f.httpServer.URL, f.verifier)
	_, err := nodeClient.Execute(context.Background(), payload)
	require.NoError(t, err)

	_, err = nodeClient.Execute(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already executed")
}

func TestExecuteRequiresVerifierCapability(t *testing.T) {
	f := newNodeFixture(t)
	payload := f.signedPayload(t, 0x03)

	stranger, err := dcrypto.GenerateSigner()
	require.NoError(t, err)
	nodeClient := client.NewNodeClient(f.httpServer.URL, stranger)
	_, err = nodeClient.Execute(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability")
}

func TestExecuteRequiresAuthHeader(t *testing.T) {
	f := newNodeFixture(t)

	resp, err := http.Post(f.httpServer.URL+"/api/v1/batches/execute", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExecuteNativeEndToEnd(t *testing.T) {
	f := newNodeFixture(t)
	f.backend.Mint(types.NativeToken, f.adminAddr, big.NewInt(1000))

	payload := &client.NativeBatchPayload{
		BatchID:    testutil.BatchIDWithSuffix(0x10),
		Recipients: testutil.Recipients(2),
		Amounts:    wireAmounts(400, 600),
		Value:      (*hexutil.Big)(big.NewInt(1000)),
	}

	nodeClient := client.NewNodeClient(f.httpServer.URL, f.admin)
	record, err := nodeClient.ExecuteNative(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), record.TotalAmount.ToInt())

	b, err := f.backend.BalanceOf(types.NativeToken, payload.Recipients[0])
	require.NoError(t, err)
	assert.Equal(t, int64(400), b.Int64())
}

func TestExecuteNativeRequiresAdmin(t *testing.T) {
	f := newNodeFixture(t)
	payload := &client.NativeBatchPayload{
		BatchID:    testutil.BatchIDWithSuffix(0x11),
		Recipients: testutil.Recipients(1),
		Amounts:    wireAmounts(5),
		Value:      (*hexutil.Big)(big.NewInt(5)),
	}

	// Verifier capability is not enough for the native path.
	nodeClient := client.NewNodeClient(f.httpServer.URL, f.verifier)
	_, err := nodeClient.ExecuteNative(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability")
}

func TestPauseBlocksExecution(t *testing.T) {
	f := newNodeFixture(t)
	adminClient := client.NewNodeClient(f.httpServer.URL, f.admin)
	verifierClient := client.NewNodeClient(f.httpServer.URL, f.verifier)

	require.NoError(t, adminClient.Pause(context.Background()))

	payload := f.signedPayload(t, 0x20)
	_, err := verifierClient.Execute(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paused")

	require.NoError(t, adminClient.Unpause(context.Background()))
	_, err = verifierClient.Execute(context.Background(), payload)
	assert.NoError(t, err)
}

func TestWhitelistAdministration(t *testing.T) {
	f := newNodeFixture(t)
	adminClient := client.NewNodeClient(f.httpServer.URL, f.admin)
	verifierClient := client.NewNodeClient(f.httpServer.URL, f.verifier)

	require.NoError(t, adminClient.SetTokenWhitelisted(context.Background(), testToken, false))

	payload := f.signedPayload(t, 0x21)
	_, err := verifierClient.Execute(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whitelisted")

	require.NoError(t, adminClient.SetTokenWhitelisted(context.Background(), testToken, true))
	_, err = verifierClient.Execute(context.Background(), payload)
	assert.NoError(t, err)
}

func TestMaxBatchSizeAdministration(t *testing.T) {
	f := newNodeFixture(t)
	adminClient := client.NewNodeClient(f.httpServer.URL, f.admin)
	verifierClient := client.NewNodeClient(f.httpServer.URL, f.verifier)

	require.NoError(t, adminClient.SetMaxBatchSize(context.Background(), 1))

	payload := f.signedPayload(t, 0x22)
	_, err := verifierClient.Execute(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum")
}

func TestDigestPreviewMatchesCompanion(t *testing.T) {
	f := newNodeFixture(t)
	payload := f.signedPayload(t, 0x30)

	want, err := f.companion.Digest(payload)
	require.NoError(t, err)

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(f.httpServer.URL+"/api/v1/digest", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Digest common.Hash `json:"digest"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, want, out.Digest, "node digest must equal companion digest byte for byte")
}

func TestRecoverPreview(t *testing.T) {
	f := newNodeFixture(t)
	payload := f.signedPayload(t, 0x31)

	digest, err := f.companion.Digest(payload)
	require.NoError(t, err)

	reqBody, err := json.Marshal(&struct {
		Digest    common.Hash   `json:"digest"`
		Signature hexutil.Bytes `json:"signature"`
	}{Digest: digest, Signature: payload.SubmitterSig})
	require.NoError(t, err)

	resp, err := http.Post(f.httpServer.URL+"/api/v1/recover", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Signer common.Address `json:"signer"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, payload.Submitter, out.Signer)
}

func TestServeLifecycle(t *testing.T) {
	g := gomega.NewWithT(t)
	f := newNodeFixture(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.server.Serve(ctx, listener)
	}()

	url := "http://" + listener.Addr().String() + "/api/v1/batches/" + testutil.BatchIDWithSuffix(0x01).String()
	g.Eventually(func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 100*time.Millisecond).Should(gomega.BeTrue())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node server did not stop")
	}
}

func TestBatchStatusRejectsBadID(t *testing.T) {
	f := newNodeFixture(t)
	resp, err := http.Get(f.httpServer.URL + "/api/v1/batches/not-a-batch-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func wireAmounts(values ...int64) []*hexutil.Big {
	out := make([]*hexutil.Big, len(values))
	for i, v := range values {
		out[i] = (*hexutil.Big)(big.NewInt(v))
	}
	return out
}
