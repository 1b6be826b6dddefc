package pricewatch

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CrawlRequest is the trigger payload. The store credentials ride along so
// one deployment can serve several tenants.
type CrawlRequest struct {
	TenantID     string `json:"tenantId"`
	CompetitorID string `json:"competitorId"`
	BaseUrl      string `json:"baseUrl"`
	MongoUri     string `json:"mongoUri"`
	Database     string `json:"database"`
}

func (r *CrawlRequest) validate() string {
	switch {
	case r.CompetitorID == "":
		return "competitorId is required"
	case r.BaseUrl == "":
		return "baseUrl is required"
	case r.TenantID == "":
		return "tenantId is required"
	case r.MongoUri == "":
		return "mongoUri is required"
	case r.Database == "":
		return "database is required"
	}
	return ""
}

// NewRouter builds the trigger surface. Each crawl endpoint validates,
// acknowledges with 202 and runs the crawl in the background; completion is
// observable only through the run log and store state.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/crawler", func(r chi.Router) {
		r.Post("/full", triggerHandler(RunModeFull))
		r.Post("/fast", triggerHandler(RunModeFast))
		r.Post("/refresh", triggerHandler(RunModeRefresh))
	})

	return r
}

func triggerHandler(mode RunMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CrawlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if msg := req.validate(); msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}

		go runCrawl(mode, req)

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":       "accepted",
			"mode":         string(mode),
			"competitorId": req.CompetitorID,
		})
	}
}

// runCrawl is the detached crawl job behind a trigger request. It owns its
// own context; the HTTP request is long gone by the time it finishes.
func runCrawl(mode RunMode, req CrawlRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	store, err := NewMongoStore(ctx, req.MongoUri, req.Database)
	if err != nil {
		log.Printf("crawl %s/%s aborted, store unavailable: %v", req.CompetitorID, mode, err)
		return
	}
	defer store.Close(context.Background())

	app, err := NewCrawler(req.CompetitorID, req.BaseUrl, store)
	if err != nil {
		log.Printf("crawl %s/%s aborted: %v", req.CompetitorID, mode, err)
		return
	}
	app.SetIdentity(req.TenantID, req.CompetitorID)

	if _, err := app.Run(ctx, mode); err != nil {
		log.Printf("crawl %s/%s failed: %v", req.CompetitorID, mode, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
