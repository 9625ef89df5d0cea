package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"montage/cache"
	"montage/config"
	"montage/core/playback"
	"montage/core/player"
	"montage/logger"
	"montage/storage"
)

// Start initializes the engine and serves the control surface until
// interrupted. projectPath is optional; when set the project file is
// loaded and hot-reloaded on change.
func Start(projectPath string) {
	cfg := config.Load()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Redis backs the persisted frame cache; without it the engine
	// runs memory-only, never fatal.
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("redis unavailable, frame cache is memory-only", logger.ErrorField(err))
	} else {
		defer cache.CloseRedis()
	}

	// The asset store resolves object keys; without it only local
	// asset paths work.
	store, err := storage.NewAssetStore(cfg)
	if err != nil {
		logger.Warn("asset store unavailable, local asset paths only", logger.ErrorField(err))
		store = nil
	}

	hub := NewEventHub()
	p, err := player.New(cfg, store, player.Options{
		Callbacks: playback.Callbacks{
			OnTimeUpdate: func(t float64) { hub.Broadcast(EvtTimeUpdate, map[string]float64{"time": t}) },
			OnEnded:      func() { hub.Broadcast(EvtEnded, nil) },
			OnError:      func(err error) { hub.Broadcast(EvtError, map[string]string{"error": err.Error()}) },
			OnGains:      func(g map[string]float64) { hub.Broadcast(EvtGains, g) },
		},
	})
	if err != nil {
		logger.Fatal("player init failed", logger.ErrorField(err))
	}
	defer p.Close()

	if projectPath != "" {
		if err := p.LoadProject(projectPath); err != nil {
			logger.Fatal("project load failed",
				logger.String("path", projectPath),
				logger.ErrorField(err))
		}
		watcher, err := player.WatchProject(projectPath, p)
		if err != nil {
			logger.Warn("project watch failed, edits on disk won't hot-reload", logger.ErrorField(err))
		} else {
			defer watcher.Close()
		}
	}

	handler := NewPlayerHandler(p, hub)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/sequence", handler.GetSequenceHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sequence", handler.UpdateSequenceHandler).Methods(http.MethodPut)

	router.HandleFunc("/api/playback/play", handler.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/pause", handler.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/seek", handler.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/volume", handler.VolumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/state", handler.StateHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/edit/move", handler.MoveHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/trim", handler.TrimHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/slip", handler.SlipHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/slide", handler.SlideHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/split", handler.SplitHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/ripple-delete", handler.RippleDeleteHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/select", handler.SelectHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/undo", handler.UndoHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/edit/redo", handler.RedoHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/splice/preview", handler.SplicePreviewHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/splice/commit", handler.SpliceCommitHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/frame", handler.FrameHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/events", hub.HandleWS)

	server.Handler = router

	go func() {
		logger.Info("montage server listening", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", logger.ErrorField(err))
	}
}

// corsMiddleware mirrors what the editor UI dev server needs.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
