// Package api wires the HTTP surface: route table, middleware stack, and
// the construction of every service the handlers depend on.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ragfuse/ragfuse/internal/api/handlers"
	"github.com/ragfuse/ragfuse/internal/api/middleware"
	"github.com/ragfuse/ragfuse/internal/cache"
	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/internal/config"
	"github.com/ragfuse/ragfuse/internal/conversation"
	"github.com/ragfuse/ragfuse/internal/embedding"
	"github.com/ragfuse/ragfuse/internal/ingest"
	"github.com/ragfuse/ragfuse/internal/llm"
	"github.com/ragfuse/ragfuse/internal/retrieval"
	"github.com/ragfuse/ragfuse/internal/settings"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
	"github.com/ragfuse/ragfuse/internal/websearch"
	"github.com/ragfuse/ragfuse/pkg/chunker"
)

type Router struct {
	mux     *chi.Mux
	db      *pgxpool.Pool
	redis   *redis.Client
	vectors vectorstore.Store
	cfg     *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, vectors vectorstore.Store, cfg *config.Config) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		db:      db,
		redis:   rdb,
		vectors: vectors,
		cfg:     cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	rl := middleware.NewRateLimiter(rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
	r.Use(rl.Limit)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	// Services
	settingsStore := settings.NewStore(rt.db)
	convStore := conversation.NewStore(rt.db)
	catalogSvc := catalog.NewService(rt.db, rt.vectors, rt.cfg.Uploads.Dir)

	var embedCache *cache.Cache
	if rt.redis != nil {
		embedCache = cache.New(rt.redis)
	}
	embedSvc := embedding.NewService(newEmbeddingBackend(rt.cfg.Embedding), embedCache, rt.cfg.Embedding.Dimensions)

	ch := chunker.New(chunker.Options{
		TargetSize:    rt.cfg.Chunker.TargetSize,
		Overlap:       rt.cfg.Chunker.Overlap,
		MinChunkChars: rt.cfg.Chunker.MinChunkChars,
		Strategy:      rt.cfg.Chunker.Strategy,
	})
	pipeline := ingest.NewPipeline(catalogSvc, rt.vectors, embedSvc, ch, rt.cfg.Uploads.MaxFileBytes)

	assembler := retrieval.NewAssembler(rt.vectors, embedSvc, websearch.NewDuckDuckGo(), settingsStore, retrieval.Options{
		SearchTopK:       rt.cfg.Chat.SearchTopK,
		ContextTopK:      rt.cfg.Chat.ContextTopK,
		MaxWebResults:    rt.cfg.Chat.MaxWebResults,
		WebSearchTimeout: rt.cfg.Chat.WebSearchTimeout,
	})
	gateway := llm.NewGateway(settingsStore, rt.cfg.Chat.LLMTimeout)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	folderH := handlers.NewFolderHandler(catalogSvc)
	fileH := handlers.NewFileHandler(catalogSvc)
	uploadH := handlers.NewUploadHandler(pipeline, rt.cfg.Uploads.MaxFileBytes)
	searchH := handlers.NewSearchHandler(assembler)
	chatH := handlers.NewChatHandler(assembler, gateway, convStore)
	convH := handlers.NewConversationHandler(convStore)
	settingsH := handlers.NewSettingsHandler(settingsStore)
	adminH := handlers.NewAdminHandler(catalogSvc, rt.vectors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/all-documents-and-folders", folderH.All)

		r.Post("/folder", folderH.Create)
		r.Get("/folder/{id}", folderH.Get)
		r.Delete("/folder/{id}", folderH.Delete)

		r.Post("/upload", uploadH.Upload)
		r.Delete("/file/{id}", fileH.Delete)
		r.Get("/file-content/{id}", fileH.Content)

		r.Get("/stats", adminH.Stats)
		r.Post("/clear-database", adminH.ClearDatabase)

		r.Post("/search", searchH.Search)
		r.Post("/chat", chatH.Chat)

		r.Get("/conversations", convH.List)
		r.Get("/conversations/{id}", convH.Get)
		r.Delete("/conversations/{id}", convH.Delete)

		r.Get("/settings", settingsH.Get)
		r.Post("/settings", settingsH.Update)
	})

	return r
}

func newEmbeddingBackend(cfg config.EmbeddingConfig) embedding.Backend {
	if cfg.Provider == "ollama" {
		return embedding.NewOllamaBackend(cfg.OllamaURL, cfg.Model)
	}
	return embedding.NewOpenAIBackend(cfg.OpenAIKey, cfg.Model)
}
