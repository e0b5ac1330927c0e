package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/TheRealTwizzy/poker-api/internal/docstore"
)

const (
	collectionLeaderboard = "leaderboard"
	collectionPurchase    = "purchase"
	collectionProfile     = "profile"
)

const unconfiguredDiagnostic = "500: Database not configured"

// documentStore is the store capability the handlers depend on.
// *docstore.Store satisfies it, including the nil (unconfigured) store.
type documentStore interface {
	CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error)
	GetDocuments(ctx context.Context, collection string, filter map[string]any, limit int) ([]docstore.Document, error)
	ListCollections(ctx context.Context) ([]string, error)
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, DetailResponse{Detail: "Not Found"})
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: serviceName})
}

func diagnosticHandler(store documentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		collections, err := store.ListCollections(r.Context())
		if err != nil {
			logStoreFailure(r, "list collections", err)
			message := err.Error()
			if errors.Is(err, docstore.ErrUnavailable) {
				message = unconfiguredDiagnostic
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"ok":    false,
				"error": message,
			})
			return
		}
		if collections == nil {
			collections = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":          true,
			"collections": collections,
		})
	}
}

func storeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, StoreResponse{Packages: catalog()})
}

// purchaseHandler records a purchase intent. No payment is taken and no chip
// balance changes; a store failure is reported in-band as demo mode.
func purchaseHandler(store documentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}

		req, err := parsePurchaseRequest(r)
		if err != nil {
			writeValidationError(w, err)
			return
		}

		id, err := store.CreateDocument(r.Context(), collectionPurchase, map[string]any{
			"username":   req.Username,
			"package_id": req.PackageID,
		})
		if err != nil {
			logStoreFailure(r, "record purchase", err)
			writeJSON(w, http.StatusOK, PurchaseResponse{
				OK:    true,
				ID:    nil,
				Note:  "demo-mode",
				Error: err.Error(),
			})
			return
		}

		slog.InfoContext(r.Context(), "purchase intent recorded",
			"requestId", requestIDFromContext(r.Context()),
			"username", req.Username,
			"packageId", req.PackageID,
			"id", id,
		)
		writeJSON(w, http.StatusOK, PurchaseResponse{OK: true, ID: &id})
	}
}

func parsePurchaseRequest(r *http.Request) (PurchaseRequest, error) {
	fields, err := bodyFields(r)
	if err != nil {
		return PurchaseRequest{}, err
	}
	verr := &ValidationError{}
	req := PurchaseRequest{
		Username:  requireString(fields, "username", verr),
		PackageID: requireString(fields, "package_id", verr),
	}
	return req, verr.orNil()
}

/* ======================
   Response helpers
   ====================== */

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, DetailResponse{Detail: "Method Not Allowed"})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, DetailResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: verr.Errors})
}

func logStoreFailure(r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, docstore.ErrUnavailable) {
		level = slog.LevelDebug
	}
	slog.Log(r.Context(), level, "document store failure; using fallback",
		"op", op,
		"path", r.URL.Path,
		"requestId", requestIDFromContext(r.Context()),
		"error", err,
	)
}
