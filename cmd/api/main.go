package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/custodix/go-metarelay/buildinfo"
	"github.com/custodix/go-metarelay/internal/chains"
	"github.com/custodix/go-metarelay/internal/relay"
	relayimpl "github.com/custodix/go-metarelay/internal/relay/impl"
	"github.com/custodix/go-metarelay/internal/router"
	auditimpl "github.com/custodix/go-metarelay/pkg/audit/impl"
	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/hsm"
	hsmimpl "github.com/custodix/go-metarelay/pkg/hsm/impl"
	"github.com/custodix/go-metarelay/pkg/logging"
	"github.com/custodix/go-metarelay/pkg/metrics"
	nonceimpl "github.com/custodix/go-metarelay/pkg/nonce/impl"
	"github.com/custodix/go-metarelay/pkg/retry"
	sqlstoreimpl "github.com/custodix/go-metarelay/pkg/sqlstore/impl"
	"github.com/custodix/go-metarelay/pkg/txnsender"
	"github.com/custodix/go-metarelay/pkg/wallet"
)

func main() {
	cfg := setupConfig()
	logging.SetupLogger(buildinfo.GitCommit, cfg.Log.Debug, cfg.Log.Human)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	sqliteDB, err := database.Open(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("failed to open database")
	}
	defer func() {
		if err := sqliteDB.Close(); err != nil {
			log.Error().Err(err).Msg("closing database")
		}
	}()

	store := sqlstoreimpl.NewSystemStore(sqliteDB)

	hsmProvider, err := hsmimpl.NewProvider(hsm.Config{
		Provider: hsm.ProviderType(cfg.HSM.Provider),
		Credentials: hsm.Credentials{
			PIN:         cfg.HSM.PIN,
			LibraryPath: cfg.HSM.LibraryPath,
			SlotID:      cfg.HSM.SlotID,
		},
		Options: hsm.Options{
			FIPSCompliance: cfg.HSM.FIPSCompliance,
			MaxRetries:     cfg.Retry.MaxRetries,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.HSM.Provider).Msg("failed to create hsm provider")
	}

	retryCfg, err := retryConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid retry configuration")
	}

	tracker := nonceimpl.NewLocalTracker(nonceimpl.NewNonceStore(sqliteDB), retryCfg)
	auditLogger := auditimpl.NewStoreLogger(sqliteDB)

	chainStacks, err := buildChainStacks(ctx, cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chain stacks")
	}
	defer func() {
		for chainID, stack := range chainStacks {
			if err := stack.Close(ctx); err != nil {
				log.Error().Err(err).Int64("chainID", int64(chainID)).Msg("closing chain stack")
			}
		}
	}()

	relayer := relayimpl.NewRelayService(
		store, hsmProvider, tracker, auditLogger, chainStacks, cfg.TenantID, retryCfg)
	instrRelayer, err := relayimpl.NewInstrumentedRelayer(relayer)
	if err != nil {
		log.Fatal().Err(err).Msg("instrumenting relayer")
	}

	if err := instrRelayer.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("initializing relayer")
	}

	acceptedChainIDs := make([]relay.ChainID, 0, len(chainStacks))
	for chainID := range chainStacks {
		acceptedChainIDs = append(acceptedChainIDs, chainID)
	}
	rateLimInterval, err := time.ParseDuration(cfg.HTTP.RateLimInterval)
	if err != nil {
		log.Fatal().Err(err).Msgf("rate limit interval has invalid format: %s", cfg.HTTP.RateLimInterval)
	}

	rtr, err := router.ConfiguredRouter(
		instrRelayer, acceptedChainIDs, cfg.HTTP.MaxRequestPerInterval, rateLimInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("configuring router")
	}

	if err := metrics.SetupInstrumentation(":"+cfg.Metrics.Port, "metarelay:api"); err != nil {
		log.Fatal().Err(err).Str("port", cfg.Metrics.Port).Msg("could not setup instrumentation")
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      rtr.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("port", cfg.HTTP.Port).Msg("could not start server")
		}
	}()
	log.Info().Str("port", cfg.HTTP.Port).Msg("relay daemon started")

	<-ctx.Done()
	shutdownCtx, cls := context.WithTimeout(context.Background(), 10*time.Second)
	defer cls()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutting down http server")
	}
	log.Info().Msg("daemon closed")
}

// buildChainStacks dials every configured chain and binds a submission
// channel for each provisioned wallet.
func buildChainStacks(
	ctx context.Context,
	cfg *config,
	store *sqlstoreimpl.SystemStore,
) (map[relay.ChainID]chains.ChainStack, error) {
	wallets, err := store.ListWalletsByTenant(ctx, cfg.TenantID)
	if err != nil {
		return nil, fmt.Errorf("listing provisioned wallets: %s", err)
	}

	chainStacks := make(map[relay.ChainID]chains.ChainStack, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		conn, err := ethclient.Dial(chainCfg.EthEndpoint)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s endpoint: %s", chainCfg.Name, err)
		}
		relayWallet, err := wallet.NewWallet(chainCfg.RelayPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("creating relay wallet for %s: %s", chainCfg.Name, err)
		}

		senders := txnsender.NewRegistry()
		for _, walletRec := range wallets {
			sender, err := txnsender.NewEthSender(conn, chainCfg.ChainID, walletRec.Address, relayWallet)
			if err != nil {
				return nil, fmt.Errorf("creating sender for wallet %s: %s", walletRec.Address, err)
			}
			senders.Bind(walletRec.Address, sender)
		}

		chainStacks[relay.ChainID(chainCfg.ChainID)] = chains.ChainStack{
			Config: chains.NetworkConfig{
				Name:     chainCfg.Name,
				ChainID:  chainCfg.ChainID,
				Endpoint: chainCfg.EthEndpoint,
			},
			Senders: senders,
			Close: func(ctx context.Context) error {
				conn.Close()
				return nil
			},
		}
	}
	return chainStacks, nil
}

func retryConfig(cfg *config) (retry.Config, error) {
	baseDelay, err := time.ParseDuration(cfg.Retry.BaseDelay)
	if err != nil {
		return retry.Config{}, fmt.Errorf("base delay has invalid format: %s", cfg.Retry.BaseDelay)
	}
	maxDelay, err := time.ParseDuration(cfg.Retry.MaxDelay)
	if err != nil {
		return retry.Config{}, fmt.Errorf("max delay has invalid format: %s", cfg.Retry.MaxDelay)
	}
	attemptTimeout, err := time.ParseDuration(cfg.Retry.AttemptTimeout)
	if err != nil {
		return retry.Config{}, fmt.Errorf("attempt timeout has invalid format: %s", cfg.Retry.AttemptTimeout)
	}
	return retry.Config{
		MaxRetries:     cfg.Retry.MaxRetries,
		BaseDelay:      baseDelay,
		MaxDelay:       maxDelay,
		AttemptTimeout: attemptTimeout,
	}, nil
}
