// This file follows cmd/kcn/main.go's shape: a urfave/cli.v1 app with a flat
// flag list and Action as the actual entry point, rather than the
// subcommand tree kcn also carries
// (this binary has exactly one job, so it needs no subcommands).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/syndtr/goleveldb/leveldb"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/dojoengine/torii-go/cache"
	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/engine"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/internal/xlog"
	"github.com/dojoengine/torii-go/metadata"
	"github.com/dojoengine/torii-go/processor"
	"github.com/dojoengine/torii-go/provider"
	"github.com/dojoengine/torii-go/store"
	"github.com/dojoengine/torii-go/store/sqlstore"
)

var logger = xlog.NewModuleLogger("cmd")

var (
	rpcURLFlag = cli.StringFlag{
		Name:  "rpc-url",
		Usage: "Starknet JSON-RPC endpoint to index from",
	}
	mysqlDSNFlag = cli.StringFlag{
		Name:  "mysql-dsn",
		Usage: "MySQL DSN for the persisted store",
	}
	metadataDBFlag = cli.StringFlag{
		Name:  "metadata-db",
		Value: "./torii-metadata.db",
		Usage: "goleveldb path for the off-chain metadata cache",
	}
	metadataConcurrencyFlag = cli.IntFlag{
		Name:  "metadata-concurrency",
		Value: 8,
		Usage: "max in-flight NFT/token metadata fetches",
	}
	worldBlockFlag = cli.Uint64Flag{
		Name:  "world-block",
		Usage: "block number the World contract was deployed at",
	}
	contractsFlag = cli.StringSliceFlag{
		Name:  "contract",
		Usage: "indexed contract as kind:address, e.g. world:0x1234 (repeatable)",
	}
	transactionsFlag = cli.BoolFlag{
		Name:  "index-transactions",
		Usage: "fetch and process full transaction bodies",
	}
	rawEventsFlag = cli.BoolFlag{
		Name:  "index-raw-events",
		Usage: "accepted but not read by the engine; raw-event rows come only from the EventEmitted processor",
	}
	pendingBlocksFlag = cli.BoolFlag{
		Name:  "index-pending-blocks",
		Usage: "poll the mempool's pending block once caught up to the tip",
	}
	pollIntervalFlag = cli.DurationFlag{
		Name:  "poll-interval",
		Value: 500 * time.Millisecond,
		Usage: "delay between ticks once the engine has caught up",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "torii-indexer"
	app.Usage = "indexes a Starknet world into a queryable MySQL store"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		rpcURLFlag,
		mysqlDSNFlag,
		metadataDBFlag,
		metadataConcurrencyFlag,
		worldBlockFlag,
		contractsFlag,
		transactionsFlag,
		rawEventsFlag,
		pendingBlocksFlag,
		pollIntervalFlag,
	}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.String(rpcURLFlag.Name) == "" {
		return cli.NewExitError("torii-indexer: --rpc-url is required", 1)
	}
	if ctx.String(mysqlDSNFlag.Name) == "" {
		return cli.NewExitError("torii-indexer: --mysql-dsn is required", 1)
	}

	contracts, err := parseContracts(ctx.StringSlice(contractsFlag.Name))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("torii-indexer: %v", err), 1)
	}
	contractSet := contract.NewSet(contracts)

	sink, err := sqlstore.Open(ctx.String(mysqlDSNFlag.Name))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("torii-indexer: opening store: %v", err), 1)
	}
	executor := store.NewExecutor(sink)
	cursorReader := sqlstore.NewCursorReader(sink.Conn())

	metadataDB, err := leveldb.OpenFile(ctx.String(metadataDBFlag.Name), nil)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("torii-indexer: opening metadata cache: %v", err), 1)
	}
	metadataFetcher := metadata.New(metadataDB, ctx.Int(metadataConcurrencyFlag.Name))

	localCache := cache.New(sink.LoadModel)

	registry := processor.NewRegistry()
	processor.RegisterBuiltins(registry)

	rpcClient := provider.NewRPCClient(ctx.String(rpcURLFlag.Name))

	cfg := engine.DefaultConfig()
	cfg.WorldBlock = ctx.Uint64(worldBlockFlag.Name)
	cfg.Flags = engine.Flags{
		Transactions:  ctx.Bool(transactionsFlag.Name),
		RawEvents:     ctx.Bool(rawEventsFlag.Name),
		PendingBlocks: ctx.Bool(pendingBlocksFlag.Name),
	}
	if d := ctx.Duration(pollIntervalFlag.Name); d > 0 {
		cfg.PollingInterval = d
	}

	eng := engine.New(rpcClient, cursorReader, executor, localCache, contractSet, registry, metadataFetcher, cfg)

	go metrics.Log(metrics.DefaultRegistry, 30*time.Second, metricsLogAdapter{})

	runCtx, cancel := context.WithCancel(context.Background())
	go awaitShutdown(eng, cancel)

	logger.Info("starting indexer", "rpc_url", ctx.String(rpcURLFlag.Name), "contracts", len(contracts))
	eng.Start(runCtx)
	return nil
}

// awaitShutdown mirrors cmd/utils.StartNode: the first interrupt begins a
// graceful stop, further interrupts are merely logged rather than forcing
// an immediate exit, since Engine.Stop already drains in-flight work.
func awaitShutdown(eng *engine.Engine, cancel context.CancelFunc) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	logger.Info("got interrupt, shutting down")
	eng.Stop()
	cancel()
	for range sigc {
		logger.Warn("already shutting down")
	}
}

func parseContracts(raw []string) ([]contract.Contract, error) {
	out := make([]contract.Contract, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --contract %q, want kind:address", entry)
		}
		kind, err := parseKind(parts[0])
		if err != nil {
			return nil, err
		}
		addr, err := felt.FromHex(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid --contract address %q: %w", entry, err)
		}
		out = append(out, contract.Contract{Address: addr, Kind: kind})
	}
	return out, nil
}

func parseKind(s string) (contract.Kind, error) {
	switch strings.ToLower(s) {
	case "world":
		return contract.KindWorld, nil
	case "erc20":
		return contract.KindERC20, nil
	case "erc721":
		return contract.KindERC721, nil
	case "erc1155":
		return contract.KindERC1155, nil
	case "udc":
		return contract.KindUDC, nil
	default:
		return 0, fmt.Errorf("unknown contract kind %q", s)
	}
}

// metricsLogAdapter satisfies go-metrics' Logger interface with xlog, the
// same "adapt a third-party logger interface to our own sink" shim the
// teacher's debug package does for its own log targets.
type metricsLogAdapter struct{}

func (metricsLogAdapter) Printf(format string, v ...interface{}) {
	logger.Info(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}
