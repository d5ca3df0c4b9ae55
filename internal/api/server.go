// Package api exposes the ledger's read/write surface to the dashboard
// as a JSON HTTP API. Caller identity arrives in the X-Africycle-Caller
// header, set by the authenticated gateway in front of this service; the
// ledger's own role checks remain authoritative.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/africycle/africycle/internal/ledger"
)

// Server handles HTTP requests against a ledger instance.
type Server struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

func NewServer(l *ledger.Ledger, logger zerolog.Logger) *Server {
	return &Server{ledger: l, log: logger}
}

type route struct {
	Name    string
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (s *Server) routes() []route {
	return []route{
		// Registry
		{"Register", http.MethodPost, "/users", s.Register},
		{"GetUserProfile", http.MethodGet, "/users/{address}", s.GetUserProfile},
		{"VerifyUser", http.MethodPost, "/users/{address}/verify", s.VerifyUser},
		{"UpdateReputation", http.MethodPost, "/users/{address}/reputation", s.UpdateReputation},
		{"GetUserStats", http.MethodGet, "/users/{address}/stats", s.GetUserStats},
		{"GetCollectorStats", http.MethodGet, "/collectors/{address}/stats", s.GetCollectorStats},
		{"GetRecyclerStats", http.MethodGet, "/recyclers/{address}/stats", s.GetRecyclerStats},

		// Collection ledger
		{"CreateCollection", http.MethodPost, "/collections", s.CreateCollection},
		{"GetCollectionDetails", http.MethodGet, "/collections/{id}", s.GetCollectionDetails},
		{"VerifyCollection", http.MethodPost, "/collections/{id}/verify", s.VerifyCollection},

		// Processing ledger
		{"CreateProcessingBatch", http.MethodPost, "/batches", s.CreateProcessingBatch},
		{"GetProcessingBatchDetails", http.MethodGet, "/batches/{id}", s.GetProcessingBatchDetails},
		{"CompleteProcessing", http.MethodPost, "/batches/{id}/complete", s.CompleteProcessing},
		{"CancelProcessingBatch", http.MethodPost, "/batches/{id}/cancel", s.CancelProcessingBatch},

		// Marketplace ledger
		{"CreateListing", http.MethodPost, "/listings", s.CreateListing},
		{"GetListingDetails", http.MethodGet, "/listings/{id}", s.GetListingDetails},
		{"PurchaseListing", http.MethodPost, "/listings/{id}/purchase", s.PurchaseListing},
		{"CancelListing", http.MethodPost, "/listings/{id}/cancel", s.CancelListing},

		// Rates, funding, simulation
		{"UpdateRate", http.MethodPost, "/rates", s.UpdateRate},
		{"FundContract", http.MethodPost, "/fund", s.FundContract},
		{"SimulateReward", http.MethodGet, "/rewards/simulate", s.SimulateReward},

		// Statistics
		{"GetPlatformStats", http.MethodGet, "/stats/platform", s.GetPlatformStats},
		{"GetContractStats", http.MethodGet, "/stats/contract", s.GetContractStats},
		{"GetContractTokenBalance", http.MethodGet, "/balance", s.GetContractTokenBalance},
	}
}

// NewHTTPServer returns an HTTP server with the v1 API mounted.
func NewHTTPServer(s *Server, listenAddress string) *http.Server {
	router := mux.NewRouter().StrictSlash(true)
	router.Handle("/metrics", promhttp.Handler())

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(LoggingMiddleware(s.log))
	v1.Use(MetricsMiddleware())

	for _, r := range s.routes() {
		v1.Methods(r.Method).Path(r.Pattern).Name(r.Name).HandlerFunc(r.Handler)
	}

	return &http.Server{
		Addr:         listenAddress,
		Handler:      router,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
}
