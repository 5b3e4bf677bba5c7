package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/amd-aig-aima/bimserver/internal/config"
	"github.com/amd-aig-aima/bimserver/internal/contentstore"
	"github.com/amd-aig-aima/bimserver/internal/contentstore/blob"
	"github.com/amd-aig-aima/bimserver/internal/contentstore/local"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
	"github.com/amd-aig-aima/bimserver/internal/entitystore/postgres"
	"github.com/amd-aig-aima/bimserver/internal/httpapi"
	"github.com/amd-aig-aima/bimserver/internal/idempotency"
	"github.com/amd-aig-aima/bimserver/internal/ifcprocessing"
	"github.com/amd-aig-aima/bimserver/internal/logging"
	"github.com/amd-aig-aima/bimserver/internal/oauthflow"
	"github.com/amd-aig-aima/bimserver/internal/progress"
	"github.com/amd-aig-aima/bimserver/internal/queue"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
	"github.com/amd-aig-aima/bimserver/internal/uploads"
	"github.com/amd-aig-aima/bimserver/internal/worker"
)

// uploadSweepInterval is how often the background sweep loop runs,
// independent of the on-demand /sweep route.
const uploadSweepInterval = 5 * time.Minute

func main() {
	configFile := flag.String("config", "", "path to an optional config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		klog.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		klog.Fatalf("entitystore: %v", err)
	}
	defer closeStore()

	content, err := openContentStore(ctx, cfg)
	if err != nil {
		klog.Fatalf("contentstore: %v", err)
	}

	issuer := tokens.NewIssuer(cfg.JWTSigningKey, cfg.AccessTokenTTL)
	flow := oauthflow.New(store, issuer)

	jobQueue := queue.New(cfg.QueueCapacity)
	uploader := uploads.New(store, content, jobQueue, cfg.UploadSessionTTL)

	pushSink := progress.NewPushSink()
	notifier := progress.New(progress.LogSink{}, pushSink)

	orchestrator := ifcprocessing.New(store, content, ifcprocessing.StubGeometryEngine{}, ifcprocessing.StubPropertyExtractor{}, notifier)
	registry := worker.NewRegistry()
	registry.Register(uploads.IfcConversionJobType, func() worker.Handler { return orchestrator })

	pool := worker.NewPool(jobQueue, idempotency.New(), registry, notifier, cfg.WorkerCount)
	go pool.Run(ctx)

	go runSweepLoop(ctx, uploader)

	server := httpapi.NewServer(store, content, issuer, flow, uploader, pushSink)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	go func() {
		logging.Info("httpapi: listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Fatalf("httpapi: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Info("httpapi: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(err, "httpapi: graceful shutdown failed")
	}
	logging.Flush()
}

// openStore connects to PostgreSQL; the *postgres.Client also implements
// io.Closer so the connection pool is released on shutdown.
func openStore(cfg *config.Config) (entitystore.Store, func(), error) {
	client, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func openContentStore(ctx context.Context, cfg *config.Config) (contentstore.Store, error) {
	switch cfg.Storage {
	case config.StorageBlob:
		return blob.New(ctx, blob.Config{Bucket: cfg.BlobBucket, Region: cfg.BlobRegion, Endpoint: cfg.BlobEndpoint})
	default:
		return local.New(cfg.LocalBaseDir)
	}
}

// runSweepLoop periodically expires stale upload sessions, complementing
// the on-demand sweep route an operator can call directly.
func runSweepLoop(ctx context.Context, uploader *uploads.Coordinator) {
	ticker := time.NewTicker(uploadSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := uploader.SweepExpired(ctx)
			if err != nil {
				logging.Error(err, "uploads: background sweep failed")
				continue
			}
			if n > 0 {
				logging.Info("uploads: background sweep expired sessions", "count", n)
			}
		}
	}
}
