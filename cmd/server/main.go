package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/immuned/rheumabot/internal/api"
	"github.com/immuned/rheumabot/internal/catalog"
	"github.com/immuned/rheumabot/internal/db"
	"github.com/immuned/rheumabot/internal/dispatch"
	"github.com/immuned/rheumabot/internal/gateway"
	"github.com/immuned/rheumabot/internal/middleware"
	"github.com/immuned/rheumabot/internal/services"
	"github.com/immuned/rheumabot/internal/session"
	"github.com/immuned/rheumabot/internal/utils"
)

func main() {
	addr := utils.SafeEnv("RHEUMABOT_ADDR", ":8080")
	commit := os.Getenv("RHEUMABOT_COMMIT")
	buildTime := os.Getenv("RHEUMABOT_BUILD_TIME")

	cat := loadCatalog()
	sink := openSink()
	defer func() { _ = sink.Close() }()

	queue := dispatch.NewQueue(
		buildSender(),
		utils.SafeEnvInt("RHEUMABOT_QUEUE_SIZE", 256),
		utils.SafeEnvInt("RHEUMABOT_QUEUE_WORKERS", 4),
	)

	store := session.NewStore()
	engine := services.NewConversationService(store, sink, queue, cat)

	mux := http.NewServeMux()
	api.NewRouter(engine, store).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Rheumabot API",
			"questions":  cat.Len(),
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.RequestLog(middleware.SecureHeaders(middleware.WithAuth(mux)))
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Printf("Rheumabot server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Drain pending outbound messages before exiting.
	queue.Close()
}

func loadCatalog() *catalog.Catalog {
	if path := os.Getenv("RHEUMABOT_CATALOG"); path != "" {
		cat, err := catalog.LoadFile(path)
		if err != nil {
			log.Fatalf("load catalog: %v", err)
		}
		log.Printf("loaded catalog from %s (%d questions)", path, cat.Len())
		return cat
	}
	return catalog.Default()
}

func openSink() *db.SQLiteSink {
	path := utils.SafeEnv("RHEUMABOT_DB", "rheumabot.db")
	sink, err := db.Open(path)
	if err != nil {
		log.Fatalf("open results db: %v", err)
	}
	return sink
}

func buildSender() dispatch.Sender {
	baseURL := os.Getenv("RHEUMABOT_GATEWAY_URL")
	if baseURL == "" {
		log.Printf("RHEUMABOT_GATEWAY_URL not set; outbound messages will be logged only")
		return dispatch.SenderFunc(func(_ context.Context, phone, text string) error {
			log.Printf("send (dry-run) to %s: %s", phone, text)
			return nil
		})
	}
	return gateway.NewClient(gateway.Config{
		BaseURL:     baseURL,
		InstanceID:  os.Getenv("RHEUMABOT_GATEWAY_INSTANCE"),
		Token:       os.Getenv("RHEUMABOT_GATEWAY_TOKEN"),
		ClientToken: os.Getenv("RHEUMABOT_GATEWAY_CLIENT_TOKEN"),
	})
}
