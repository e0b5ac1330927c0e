package main

import (
	"context"
	"fmt"
	"net/http"
)

const leaderboardLimit = 50

var fallbackLeaderboard = []LeaderboardEntry{
	{Username: "Nova", Chips: 125000},
	{Username: "Blaze", Chips: 98000},
	{Username: "Astra", Chips: 76500},
	{Username: "Echo", Chips: 65420},
	{Username: "Sol", Chips: 50210},
}

// leaderboardHandler serves stored entries in store order, or the fixed
// fallback list when the read fails or finds nothing.
func leaderboardHandler(store documentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		entries, err := loadLeaderboard(r.Context(), store)
		if err != nil {
			logStoreFailure(r, "load leaderboard", err)
			entries = nil
		}
		if len(entries) == 0 {
			entries = leaderboardFallback()
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func loadLeaderboard(ctx context.Context, store documentStore) ([]LeaderboardEntry, error) {
	docs, err := store.GetDocuments(ctx, collectionLeaderboard, nil, leaderboardLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(docs))
	for _, doc := range docs {
		username, err := doc.String("username", "Player")
		if err != nil {
			return nil, fmt.Errorf("leaderboard record %s: %w", doc.ID(), err)
		}
		chips, err := doc.Int("chips", 0)
		if err != nil {
			return nil, fmt.Errorf("leaderboard record %s: %w", doc.ID(), err)
		}
		if chips < 0 {
			return nil, fmt.Errorf("leaderboard record %s: negative chips %d", doc.ID(), chips)
		}
		entries = append(entries, LeaderboardEntry{Username: username, Chips: chips})
	}
	return entries, nil
}

func leaderboardFallback() []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(fallbackLeaderboard))
	copy(out, fallbackLeaderboard)
	return out
}
