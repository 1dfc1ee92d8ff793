package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/app/service"
	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/infrastructure/configloader"
	clientprovider "conviction_voting/internal/infrastructure/network/client"
	networkdefinition "conviction_voting/internal/infrastructure/network/definition"
	"conviction_voting/internal/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// ChainDialer connects to the network selected by cfg. The returned
// function releases the connection.
type ChainDialer func(cfg *configloader.Config, log port.Logger) (port.ChainClient, func(), error)

// DialChain resolves the configured network and dials it over JSON-RPC.
func DialChain(cfg *configloader.Config, log port.Logger) (port.ChainClient, func(), error) {
	netDef, err := networkdefinition.NewNetworkDefinitionProvider(log).Resolve(cfg.Network)
	if err != nil {
		return nil, nil, err
	}
	provider := clientprovider.NewEVMClientProvider(cfg, log)
	client, err := provider.GetClient(netDef)
	if err != nil {
		return nil, nil, err
	}
	return client, provider.CloseAll, nil
}

type gasCostFlags struct {
	cfgPath   string
	network   string
	rpcURL    string
	proxy     string
	fromBlock uint64
	toBlock   uint64
	expanded  bool
	unique    bool
	format    string
	isDebug   bool
}

// NewGasCostCommand builds the gas_cost root command.
func NewGasCostCommand(dial ChainDialer) *cobra.Command {
	f := &gasCostFlags{}

	cmd := &cobra.Command{
		Use:   "gas_cost",
		Short: "Sum the gas spent by every transaction that touched a contract",
		Long: `gas_cost finds every transaction that emitted a log from a contract within a
block range (including failed ones) and prints the fee paid in wei, either
per transaction or summed per sender.`,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGasCost(cmd, f, dial)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.cfgPath, "config", "", "config file (defaults only when empty)")
	flags.StringVar(&f.network, "network", "", "network identifier: mainnet, xdai or rinkeby")
	flags.StringVar(&f.rpcURL, "rpc-url", "", "JSON-RPC endpoint, overrides the network's default")
	flags.StringVar(&f.proxy, "proxy", configloader.DefaultProxy, "contract address whose logs are scanned")
	flags.Uint64Var(&f.fromBlock, "from-block", configloader.DefaultFromBlock, "first block of the range")
	flags.Uint64Var(&f.toBlock, "to-block", 0, "last block of the range (default: chain head)")
	flags.BoolVar(&f.expanded, "expanded", false, "print one line per transaction instead of per sender")
	flags.BoolVar(&f.unique, "unique", false, "count a transaction once even if it emitted several logs")
	flags.StringVar(&f.format, "format", string(entity.ReportFormatText), "output format: text or json")
	flags.BoolVar(&f.isDebug, "debug", false, "enable debug logging")

	return cmd
}

// scanOptions keeps only the range flags that were given on the command line.
func scanOptions(cmd *cobra.Command, f *gasCostFlags) entity.ScanOptions {
	flags := cmd.Flags()
	opts := entity.ScanOptions{
		Unique: f.unique,
		Format: entity.ReportFormat(strings.ToLower(f.format)),
	}
	if flags.Changed("proxy") {
		opts.Proxy = &f.proxy
	}
	if flags.Changed("from-block") {
		opts.FromBlock = &f.fromBlock
	}
	if flags.Changed("to-block") {
		opts.ToBlock = &f.toBlock
	}
	if flags.Changed("expanded") {
		opts.Expanded = &f.expanded
	}
	return opts
}

func runGasCost(cmd *cobra.Command, f *gasCostFlags, dial ChainDialer) error {
	_ = godotenv.Load()

	cfg, err := configloader.Load(f.cfgPath)
	if err != nil {
		return err
	}
	if f.network != "" {
		cfg.Network.Identifier = f.network
	}
	if f.rpcURL != "" {
		cfg.Network.RPCURL = f.rpcURL
	}

	level := cfg.Logging.Level
	if f.isDebug {
		level = "debug"
	}
	logger.Init(logger.Options{Level: level, Format: "console", Output: cmd.ErrOrStderr()})
	defer logger.Sync()
	appLogger := logger.NewSlogAdapter()

	client, closeClient, err := dial(cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeClient()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.NewGasCostService(client, appLogger, entity.RangeDefaults{
		Proxy:     cfg.GasCost.Proxy,
		FromBlock: cfg.GasCost.FromBlock,
	}, cfg.Performance.MaxConcurrentRoutines)

	return svc.Run(ctx, scanOptions(cmd, f), cmd.OutOrStdout())
}

// normalizeArgs turns "--expanded true" and "--expanded false" into their
// "--expanded=<v>" forms so a boolean flag accepts a separate value.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--expanded" && i+1 < len(args) {
			switch strings.ToLower(args[i+1]) {
			case "true", "false":
				out = append(out, "--expanded="+strings.ToLower(args[i+1]))
				i++
				continue
			}
		}
		out = append(out, args[i])
	}
	return out
}

// ExecuteGasCost runs the gas_cost command and exits with status 1 on error.
func ExecuteGasCost() {
	cmd := NewGasCostCommand(DialChain)
	cmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("gas_cost failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}
