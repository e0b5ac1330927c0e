package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultProfileChips = 10000

func profileHandler(store documentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimPrefix(r.URL.Path, "/profile/")
		if username == "" || strings.Contains(username, "/") {
			writeJSON(w, http.StatusNotFound, DetailResponse{Detail: "Not Found"})
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		profile, found, err := LoadProfile(r.Context(), store, username)
		if err != nil {
			logStoreFailure(r, "load profile", err)
		}
		if err != nil || !found {
			profile = defaultProfile(username)
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// LoadProfile reads the first profile record for username. found is false
// when no record matches; the synthesized default is never persisted.
func LoadProfile(ctx context.Context, store documentStore, username string) (Profile, bool, error) {
	docs, err := store.GetDocuments(ctx, collectionProfile, map[string]any{"username": username}, 1)
	if err != nil {
		return Profile{}, false, err
	}
	if len(docs) == 0 {
		return Profile{}, false, nil
	}

	doc := docs[0]
	var p Profile
	if p.Username, err = doc.String("username", username); err != nil {
		return Profile{}, false, fmt.Errorf("profile record %s: %w", doc.ID(), err)
	}
	if p.Avatar, err = doc.OptionalString("avatar"); err != nil {
		return Profile{}, false, fmt.Errorf("profile record %s: %w", doc.ID(), err)
	}
	if p.Bio, err = doc.OptionalString("bio"); err != nil {
		return Profile{}, false, fmt.Errorf("profile record %s: %w", doc.ID(), err)
	}
	if p.Chips, err = doc.Int("chips", defaultProfileChips); err != nil {
		return Profile{}, false, fmt.Errorf("profile record %s: %w", doc.ID(), err)
	}
	return p, true, nil
}

func defaultProfile(username string) Profile {
	return Profile{Username: username, Chips: defaultProfileChips}
}
