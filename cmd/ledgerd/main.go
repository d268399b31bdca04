// Copyright 2025 Certen Protocol
//
// ledgerd is the append-only governance event ledger service: it wires
// storage, write-time validation, epoch publication, two-phase emission
// bookkeeping, and orphan detection behind an HTTP query surface.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoyack/governance-ledger/pkg/database"
	"github.com/hoyack/governance-ledger/pkg/integrity"
	"github.com/hoyack/governance-ledger/pkg/kvdb"
	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/ledgerconfig"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
	"github.com/hoyack/governance-ledger/pkg/merkle"
	"github.com/hoyack/governance-ledger/pkg/server"
	"github.com/hoyack/governance-ledger/pkg/validators"
)

func main() {
	configPath := os.Getenv("LEDGER_CONFIG_FILE")
	cfg, err := ledgerconfig.LoadWithFile(configPath)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	backend, closeBackend, err := buildBackend(cfg)
	if err != nil {
		log.Fatalf("building storage backend: %v", err)
	}
	defer closeBackend()

	actorRegistry := validators.NewInMemoryActorRegistry(
		"system.epoch-manager", "system.orphan-detector", "system.genesis", "system.audit-requester",
	)
	stateProjection := validators.NewInMemoryStateProjection()

	var eventTypeOpts []validators.EventTypeValidatorOption
	if !cfg.StrictEventTypes {
		eventTypeOpts = append(eventTypeOpts, validators.WithoutStrictMode())
	}
	pipeline := validators.NewValidatedLedger(backend,
		validators.NewEventTypeValidator(eventTypeOpts...),
		validators.NewActorValidator(actorRegistry, false),
		validators.NewStateTransitionValidator(stateProjection, !cfg.StrictStateTransition),
		validators.NewHashChainValidator(backend, cfg.HashAlgorithm, false),
	)

	epochRepo := merkle.NewInMemoryEpochRepository()
	epochManager := merkle.NewEpochManager(pipeline, epochRepo, merkle.EpochManagerConfig{
		EventsPerEpoch: cfg.EventsPerEpoch,
		Algorithm:      cfg.EpochAlgorithm,
		PublisherActor: cfg.EpochPublisher,
	})

	orphanDetector := integrity.NewOrphanDetector(pipeline, cfg.OrphanTimeout)
	go runOrphanScanLoop(orphanDetector, cfg.OrphanScanFreq)
	go runEpochBoundaryLoop(pipeline, epochManager, cfg.OrphanScanFreq)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := pipeline.MaxSequence(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"degraded","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	ledgerHandlers := server.NewLedgerHandlers(pipeline)
	mux.HandleFunc("/api/events", ledgerHandlers.HandleReadEvents)
	mux.HandleFunc("/api/events/sequence/", ledgerHandlers.HandleEventBySequence)
	mux.HandleFunc("/api/events/id/", ledgerHandlers.HandleEventByID)
	mux.HandleFunc("/api/events/latest", ledgerHandlers.HandleLatestEvent)

	proofHandlers := server.NewProofHandlers(pipeline, epochManager, cfg.HashAlgorithm, "system.audit-requester")
	mux.HandleFunc("/api/proofs/completeness", proofHandlers.HandleGenerateProof)
	mux.HandleFunc("/api/proofs/inclusion", proofHandlers.HandleInclusionProof)
	mux.HandleFunc("/api/proofs/verify", proofHandlers.HandleVerifyCompleteness)

	exportHandlers := server.NewExportHandlers(pipeline, cfg.HashAlgorithm)
	mux.HandleFunc("/api/export", exportHandlers.HandleExport)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(ledgermetrics.Registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	go func() {
		log.Printf("ledgerd listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()
	go func() {
		log.Printf("ledgerd metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down ledgerd")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
	log.Printf("ledgerd stopped")
}

// buildBackend constructs the configured storage backend and a cleanup
// function to release its resources.
func buildBackend(cfg *ledgerconfig.Config) (ledger.Port, func(), error) {
	switch cfg.Backend {
	case "postgres":
		client, err := database.NewClient(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		return ledger.NewPostgresBackend(client.DB()), func() { client.Close() }, nil
	default:
		db, err := dbm.NewDB("governance-ledger", dbm.BackendType(cfg.KVDriver), cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening kv store: %w", err)
		}
		adapter := kvdb.NewKVAdapter(db)
		return ledger.NewKVBackend(adapter), func() { db.Close() }, nil
	}
}

// runOrphanScanLoop periodically scans for intents with no outcome and
// counts and logs each one found. It appends nothing to the ledger, and an
// orphan is reported again on every later scan.
func runOrphanScanLoop(detector *integrity.OrphanDetector, freq time.Duration) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()
	for range ticker.C {
		orphans, err := detector.Scan(context.Background(), time.Now().UTC())
		if err != nil {
			log.Printf("orphan scan: %v", err)
			continue
		}
		for _, o := range orphans {
			ledgermetrics.OrphansDetectedTotal.WithLabelValues(o.OriginalEventType).Inc()
			log.Printf("orphan detected: intent=%s correlation=%s age=%.0fs", o.IntentEventID, o.CorrelationID, o.AgeSeconds)
		}
	}
}

// runEpochBoundaryLoop periodically checks whether the ledger has crossed
// an epoch boundary and publishes the epoch's Merkle root if so.
func runEpochBoundaryLoop(backend ledger.Port, manager *merkle.EpochManager, freq time.Duration) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()
	for range ticker.C {
		ctx := context.Background()
		sequence, err := backend.MaxSequence(ctx)
		if err != nil {
			log.Printf("epoch boundary check: %v", err)
			continue
		}
		cfg := manager.Config()
		for epochID := uint64(0); ; epochID++ {
			_, end := merkle.EpochRange(epochID, cfg.EventsPerEpoch)
			if end > sequence {
				break
			}
			atBoundary, _, err := manager.AtBoundary(ctx, end)
			if err != nil {
				log.Printf("epoch boundary check: %v", err)
				break
			}
			if !atBoundary {
				continue
			}
			started := time.Now()
			if _, err := manager.Publish(ctx, epochID); err != nil {
				ledgermetrics.EpochBuildsTotal.WithLabelValues("error").Inc()
				log.Printf("epoch %d publish: %v", epochID, err)
				continue
			}
			ledgermetrics.EpochBuildsTotal.WithLabelValues("ok").Inc()
			ledgermetrics.EpochBuildLatencySeconds.Observe(time.Since(started).Seconds())
		}
	}
}
