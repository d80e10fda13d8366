// Command vidbeed is the headless VidBee daemon: it wires the
// HistoryStore, DownloadQueue, DownloadEngine, SubscriptionScheduler and
// LoopbackBridge together and runs them until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"vidbee/internal/bridge"
	"vidbee/internal/config"
	"vidbee/internal/downloader"
	"vidbee/internal/events"
	"vidbee/internal/extractor"
	"vidbee/internal/history"
	"vidbee/internal/logger"
	"vidbee/internal/paths"
	"vidbee/internal/queue"
	"vidbee/internal/subscription"
)

const (
	queueBufferSize = 64
	extractorEnvVar = "VIDBEE_YTDLP_PATH"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*debug); err != nil {
		fmt.Fprintln(os.Stderr, "vidbeed:", err)
		os.Exit(1)
	}
}

func run(debug bool) error {
	p, err := paths.GetPaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	if err := p.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	if err := logger.Init(p.AppData); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if debug {
		logger.Log = logger.Log.Level(zerolog.DebugLevel)
	}

	settings, err := config.Load(p.AppData)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settingsFn := func() config.Settings { return settings.Get() }

	db, err := history.Open(p.AppData)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("closing history store")
		}
	}()
	store := history.NewStore(db)

	ytDlpPath, err := p.LocateExtractor(os.Getenv(extractorEnvVar))
	if err != nil {
		return fmt.Errorf("locate extractor: %w", err)
	}
	ffmpegPath := p.FFmpegPath()
	aria2Path, _ := p.Aria2cPath()
	driver := extractor.New(ytDlpPath, ffmpegPath)

	bus := events.NewBus()
	cur := settingsFn()
	downloadDir := cur.DownloadPath
	if downloadDir == "" {
		downloadDir = p.Downloads
	}
	q := queue.New(bus, cur.MaxConcurrent, queueBufferSize)
	engine := downloader.New(q, driver, store, bus, settingsFn, downloadDir, aria2Path)
	scheduler := subscription.New(store, engine, bus, settingsFn)
	bridgeSrv := bridge.New(engine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	engine.Start(ctx)
	scheduler.Start(ctx)

	if cur.LoopbackBridgeEnabled {
		if err := bridgeSrv.Start(); err != nil {
			logger.Log.Error().Err(err).Msg("loopback bridge failed to start")
		} else {
			logger.Log.Info().Str("addr", bridgeSrv.Addr()).Msg("loopback bridge listening")
		}
	}

	group.Go(func() error {
		<-ctx.Done()
		logger.Log.Info().Msg("shutting down")
		engine.Stop()
		scheduler.Stop()
		if err := bridgeSrv.Stop(); err != nil {
			logger.Log.Error().Err(err).Msg("loopback bridge shutdown")
		}
		return ctx.Err()
	})

	logger.Log.Info().Str("appData", p.AppData).Msg("vidbeed started")

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
