// Package main implements a mock OPay API server for local development.
// It checks the bearer token and MerchantId headers and answers the cashier
// endpoints with canned payloads, so "opay request" and "opay serve" can be
// exercised without real OPay credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	codeSuccess     = "00000"
	codeAuthFailed  = "02001"
	codeBadRequest  = "02000"
	codeNotFound    = "02006"
	messageSuccess  = "SUCCESSFUL"
	statusInitial   = "INITIAL"
	defaultCurrency = "NGN"
)

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type amount struct {
	Total    json.Number `json:"total"`
	Currency string      `json:"currency"`
}

type order struct {
	Reference string `json:"reference"`
	OrderNo   string `json:"orderNo"`
	Status    string `json:"status"`
	Amount    amount `json:"amount"`
}

// orders keeps created orders so status lookups find them.
type orders struct {
	mu    sync.Mutex
	byRef map[string]*order
	seq   int
}

func newOrders() *orders {
	return &orders{byRef: make(map[string]*order)}
}

func (o *orders) create(ref string, amt amount) *order {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	if amt.Currency == "" {
		amt.Currency = defaultCurrency
	}
	ord := &order{
		Reference: ref,
		OrderNo:   fmt.Sprintf("2%017d", o.seq),
		Status:    statusInitial,
		Amount:    amt,
	}
	o.byRef[ref] = ord
	return ord
}

func (o *orders) get(ref string) (*order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ord, ok := o.byRef[ref]
	return ord, ok
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	merchantID := flag.String("merchant-id", "", "require this MerchantId header (any when empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock OPay server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(logger, *merchantID),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, merchantID string) http.Handler {
	store := newOrders()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/international/cashier/create", createHandler(logger, store))
	mux.HandleFunc("POST /api/v1/international/cashier/status", statusHandler(logger, store))

	return requestLogger(logger, requireAuth(logger, merchantID, mux))
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests without a bearer token or MerchantId.
func requireAuth(logger *slog.Logger, merchantID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		mid := r.Header.Get("MerchantId")

		if !ok || token == "" || mid == "" || (merchantID != "" && mid != merchantID) {
			logger.Warn("rejected request", "path", r.URL.Path, "merchant_id", mid)
			writeJSON(w, http.StatusUnauthorized, envelope{
				Code:    codeAuthFailed,
				Message: "authentication failed",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func createHandler(logger *slog.Logger, store *orders) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reference string `json:"reference"`
			Amount    amount `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
			writeJSON(w, http.StatusBadRequest, envelope{Code: codeBadRequest, Message: "reference is required"})
			return
		}

		ord := store.create(req.Reference, req.Amount)
		writeJSON(w, http.StatusOK, envelope{
			Code:    codeSuccess,
			Message: messageSuccess,
			Data: map[string]any{
				"reference":  ord.Reference,
				"orderNo":    ord.OrderNo,
				"cashierUrl": "https://sandboxcashier.opaycheckout.com/checkout/" + ord.OrderNo,
				"status":     ord.Status,
				"amount":     ord.Amount,
			},
		})
		logger.Info("created order", "reference", ord.Reference, "order_no", ord.OrderNo)
	}
}

func statusHandler(logger *slog.Logger, store *orders) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reference string `json:"reference"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
			writeJSON(w, http.StatusBadRequest, envelope{Code: codeBadRequest, Message: "reference is required"})
			return
		}

		ord, ok := store.get(req.Reference)
		if !ok {
			writeJSON(w, http.StatusOK, envelope{Code: codeNotFound, Message: "order not found"})
			return
		}

		writeJSON(w, http.StatusOK, envelope{Code: codeSuccess, Message: messageSuccess, Data: ord})
		logger.Info("status", "reference", ord.Reference, "status", ord.Status)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}
