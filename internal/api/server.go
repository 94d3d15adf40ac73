package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
// Write endpoints require adminAPIKey as a bearer token when it is set.
func NewServer(port string, handler *Handler, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stocks/{ticker}/dcf", handler.GetDCF)
	mux.HandleFunc("GET /api/v1/stocks/{ticker}/backtest", handler.GetBacktest)
	mux.HandleFunc("GET /api/v1/stocks/{ticker}/sensitivity", handler.GetSensitivity)

	mux.HandleFunc("GET /api/v1/users/{user}/portfolio/history", handler.GetHistory)
	mux.HandleFunc("GET /api/v1/users/{user}/portfolio/snapshot", handler.GetSnapshot)
	mux.HandleFunc("GET /api/v1/users/{user}/portfolio/target", handler.GetTarget)

	mux.HandleFunc("GET /api/v1/users/{user}/reports/latest", handler.GetLatestReport)
	mux.HandleFunc("GET /api/v1/users/{user}/reports/{date}", handler.GetReportByDate)
	mux.HandleFunc("GET /api/v1/users/{user}/reports", handler.ListReports)

	protect := func(h http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return h
		}
		return requireAuth(adminAPIKey, h)
	}
	mux.Handle("POST /api/v1/users/{user}/reports/generate", protect(handler.GenerateReport))
	mux.Handle("POST /api/v1/users/{user}/lots", protect(handler.CreateLot))
	mux.Handle("DELETE /api/v1/users/{user}/lots/{id}", protect(handler.DeleteLot))
	mux.Handle("POST /api/v1/users/{user}/targets", protect(handler.CreateTarget))

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
