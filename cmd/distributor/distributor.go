/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package distributor is the command line entrypoint: it runs a distributor
// node and offers the offline signing helpers (key generation, digest
// preview, submitter signing and signer recovery).
package distributor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net"
	"os"

	"github.com/akshayp9/batch-distributor-dual-sig/backend"
	"github.com/akshayp9/batch-distributor-dual-sig/client"
	"github.com/akshayp9/batch-distributor-dual-sig/common/monitoring"
	"github.com/akshayp9/batch-distributor-dual-sig/config"
	"github.com/akshayp9/batch-distributor-dual-sig/core"
	"github.com/akshayp9/batch-distributor-dual-sig/crypto"
	"github.com/akshayp9/batch-distributor-dual-sig/ledger"
	"github.com/akshayp9/batch-distributor-dual-sig/node"
	"github.com/akshayp9/batch-distributor-dual-sig/typeddata"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/alecthomas/kingpin.v2"
)

var logger = buildLogger("info")

type CLI struct {
	app  *kingpin.Application
	out  io.Writer
	stop chan struct{}

	nodeCmd    *kingpin.CmdClause
	configPath *string

	keygenCmd *kingpin.CmdClause
	keyOut    *string

	digestCmd    *kingpin.CmdClause
	digestBatch  *string
	digestChain  *uint64
	digestTarget *string

	signCmd    *kingpin.CmdClause
	signBatch  *string
	signKey    *string
	signChain  *uint64
	signTarget *string

	recoverCmd    *kingpin.CmdClause
	recoverDigest *string
	recoverSig    *string
}

func NewCLI() *CLI {
	app := kingpin.New("distributor", "Runs a batch distributor node or one of the offline signing helpers")
	cli := &CLI{
		app:  app,
		out:  os.Stdout,
		stop: make(chan struct{}),
	}

	cli.nodeCmd = app.Command("node", "run a distributor node")
	cli.configPath = cli.nodeCmd.Flag("config", "Specifies the config file to load the configuration from").Required().ExistingFile()

	cli.keygenCmd = app.Command("keygen", "generate a secp256k1 key and print its address")
	cli.keyOut = cli.keygenCmd.Flag("out", "File to write the hex encoded private key to").Required().String()

	cli.digestCmd = app.Command("digest", "print the typed data digest of a batch payload")
	cli.digestBatch = cli.digestCmd.Flag("batch", "Batch payload JSON file").Required().ExistingFile()
	cli.digestChain = cli.digestCmd.Flag("chain-id", "Chain id of the signing domain").Required().Uint64()
	cli.digestTarget = cli.digestCmd.Flag("contract", "Verifying contract of the signing domain").Required().String()

	cli.signCmd = app.Command("sign", "sign a batch payload as the submitter")
	cli.signBatch = cli.signCmd.Flag("batch", "Batch payload JSON file, rewritten with the signature").Required().ExistingFile()
	cli.signKey = cli.signCmd.Flag("key", "Submitter private key file").Required().ExistingFile()
	cli.signChain = cli.signCmd.Flag("chain-id", "Chain id of the signing domain").Required().Uint64()
	cli.signTarget = cli.signCmd.Flag("contract", "Verifying contract of the signing domain").Required().String()

	cli.recoverCmd = app.Command("recover", "recover the signer of a digest from a signature")
	cli.recoverDigest = cli.recoverCmd.Flag("digest", "Hex digest the signature covers").Required().String()
	cli.recoverSig = cli.recoverCmd.Flag("sig", "Hex signature").Required().String()

	return cli
}

// Run dispatches args. The returned channel closes when the command is done;
// the node command closes it only when the node stops serving.
func (cli *CLI) Run(args []string) <-chan struct{} {
	command := kingpin.MustParse(cli.app.Parse(args))

	var err error
	switch command {
	case cli.nodeCmd.FullCommand():
		err = cli.launchNode(*cli.configPath)
	case cli.keygenCmd.FullCommand():
		err = cli.keygen(*cli.keyOut)
		close(cli.stop)
	case cli.digestCmd.FullCommand():
		err = cli.digest(*cli.digestBatch, *cli.digestChain, *cli.digestTarget)
		close(cli.stop)
	case cli.signCmd.FullCommand():
		err = cli.sign(*cli.signBatch, *cli.signKey, *cli.signChain, *cli.signTarget)
		close(cli.stop)
	case cli.recoverCmd.FullCommand():
		err = cli.recoverSigner(*cli.recoverDigest, *cli.recoverSig)
		close(cli.stop)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v \n", command, err)
		os.Exit(2)
	}

	return cli.stop
}

func (cli *CLI) launchNode(configPath string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger = buildLogger(conf.GeneralConfig.LogSpec)

	db, err := ledger.NewExecutedBatchDB(conf.FileStore.Path, logger)
	if err != nil {
		return err
	}

	provider := monitoring.NewProvider(logger)
	db.WithMetrics(ledger.NewExecutedLedgerMetrics(provider))

	params := conf.DistributorParams
	policy := core.NewPolicy(params.MaxBatchSize, params.EnforceDeadline)
	for _, token := range config.Addresses(params.TokenWhitelist) {
		policy.AllowToken(token)
	}
	if params.StartPaused {
		policy.Pause()
	}

	be := backend.NewMemory()
	for _, b := range params.InitialBalances {
		amount, _ := new(big.Int).SetString(b.Amount, 10)
		be.Mint(common.HexToAddress(b.Token), common.HexToAddress(b.Holder), amount)
	}

	domain := typeddata.Domain{
		ChainID:           new(big.Int).SetUint64(params.ChainID),
		VerifyingContract: common.HexToAddress(params.VerifyingContract),
	}
	engine := core.NewEngine(
		domain,
		policy,
		db,
		be,
		common.HexToAddress(params.Treasury),
		&core.LogSink{Logger: logger},
		logger,
	).WithMetrics(core.NewEngineMetrics(provider))

	server := node.NewServer(
		engine,
		db,
		config.Addresses(params.Verifiers),
		config.Addresses(params.Admins),
		logger,
		os.Stderr,
	)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.GeneralConfig.ListenAddress, conf.GeneralConfig.ListenPort))
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	if conf.Monitoring != nil && conf.Monitoring.ListenAddress != "" {
		monitoringListener, err := net.Listen("tcp", conf.Monitoring.ListenAddress)
		if err != nil {
			return errors.Wrap(err, "monitoring listen")
		}
		go func() {
			if err := provider.StartPrometheusServer(context.Background(), monitoringListener); err != nil {
				logger.Errorf("Prometheus server stopped: %v", err)
			}
		}()
	}

	go func() {
		defer close(cli.stop)
		defer db.Close()
		if err := server.Serve(context.Background(), listener); err != nil {
			logger.Errorf("Node stopped with an error: %v", err)
		}
	}()

	logger.Infof("Distributor node listening on %s", listener.Addr())
	return nil
}

func (cli *CLI) keygen(out string) error {
	signer, err := crypto.GenerateSigner()
	if err != nil {
		return err
	}
	if err := signer.Save(out); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\n", signer.Address())
	return nil
}

func (cli *CLI) digest(batchPath string, chainID uint64, contract string) error {
	payload, companion, err := loadBatch(batchPath, chainID, contract)
	if err != nil {
		return err
	}
	digest, err := companion.Digest(payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\n", digest)
	return nil
}

func (cli *CLI) sign(batchPath, keyPath string, chainID uint64, contract string) error {
	payload, companion, err := loadBatch(batchPath, chainID, contract)
	if err != nil {
		return err
	}
	signer, err := crypto.LoadSigner(keyPath)
	if err != nil {
		return err
	}
	if err := companion.WithSigner(signer).Sign(payload); err != nil {
		return err
	}
	signed, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal signed payload")
	}
	if err := os.WriteFile(batchPath, signed, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", batchPath)
	}
	fmt.Fprintf(cli.out, "%s\n", payload.Submitter)
	return nil
}

func (cli *CLI) recoverSigner(digestHex, sigHex string) error {
	digestBytes, err := hexutil.Decode(digestHex)
	if err != nil || len(digestBytes) != common.HashLength {
		return errors.Errorf("%q is not a 32 byte hex digest", digestHex)
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return errors.Wrap(err, "decode signature")
	}
	signer, err := crypto.RecoverSigner(common.BytesToHash(digestBytes), sig)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\n", signer)
	return nil
}

func loadBatch(path string, chainID uint64, contract string) (*client.BatchPayload, *client.Companion, error) {
	if !common.IsHexAddress(contract) {
		return nil, nil, errors.Errorf("%q is not an address", contract)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", path)
	}
	payload := &client.BatchPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, nil, errors.Wrapf(err, "parse %s", path)
	}
	companion := client.NewCompanion(typeddata.Domain{
		ChainID:           new(big.Int).SetUint64(chainID),
		VerifyingContract: common.HexToAddress(contract),
	})
	return payload, companion, nil
}

func buildLogger(spec string) *zap.SugaredLogger {
	level, err := zapcore.ParseLevel(spec)
	if err != nil {
		level = zapcore.InfoLevel
	}
	logConfig := zap.NewProductionConfig()
	logConfig.Level.SetLevel(level)
	l, _ := logConfig.Build()
	return l.Sugar()
}
