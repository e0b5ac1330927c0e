package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type BotConfig struct {
	Username            string `json:"username"`
	Strategy            string `json:"strategy"`
	Threshold           int64  `json:"threshold,omitempty"`
	MaxPurchasesPerDay  int    `json:"maxPurchasesPerDay,omitempty"`
	PreferredPackage    string `json:"preferredPackage,omitempty"`
	SoundEnabled        *bool  `json:"sound,omitempty"`
	AnimationsEnabled   *bool  `json:"animations,omitempty"`
	PreferredBrightness *int   `json:"brightness,omitempty"`
}

type BotState struct {
	Config        BotConfig
	ActionsTaken  int
	ActionsToday  int
	LastActionDay int
}

type StorePackage struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Chips int64   `json:"chips"`
	Price float64 `json:"price"`
}

type StoreResponse struct {
	Packages []StorePackage `json:"packages"`
}

type ProfileResponse struct {
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Chips    int64   `json:"chips"`
}

type PurchaseResponse struct {
	OK    bool    `json:"ok"`
	ID    *string `json:"id"`
	Note  string  `json:"note,omitempty"`
	Error string  `json:"error,omitempty"`
}

type SettingsResponse struct {
	Saved      bool `json:"saved"`
	Sound      bool `json:"sound"`
	Animations bool `json:"animations"`
	Brightness int  `json:"brightness"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if !botsEnabled() {
		logger.Info("bots disabled")
		return
	}

	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/")
	if baseURL == "" {
		logger.Error("API_BASE_URL is required")
		os.Exit(1)
	}

	bots, err := loadBots()
	if err != nil {
		logger.Error("failed to load bots", "error", err)
		os.Exit(1)
	}
	if len(bots) == 0 {
		logger.Info("no bots configured")
		return
	}

	minDelay := parseEnvInt("BOT_RATE_LIMIT_MIN_MS", 3000)
	maxDelay := parseEnvInt("BOT_RATE_LIMIT_MAX_MS", 12000)
	actionProbability := parseEnvFloat("BOT_ACTION_PROBABILITY", 1.0)
	maxActions := parseEnvInt("BOT_MAX_ACTIONS_PER_RUN", 1)

	states := make([]*BotState, 0, len(bots))
	for _, bot := range bots {
		states = append(states, &BotState{Config: bot})
	}
	shuffle(states)

	client := &http.Client{Timeout: 15 * time.Second}

	catalog, err := fetchCatalog(client, baseURL)
	if err != nil {
		logger.Error("catalog fetch failed", "error", err)
		os.Exit(1)
	}

	for _, bot := range states {
		log := logger.With("bot", bot.Config.Username)
		if bot.ActionsTaken >= maxActions {
			continue
		}
		if !canActToday(bot) {
			continue
		}
		if rand.Float64() > actionProbability {
			continue
		}

		if settings, ok := botSettings(bot.Config); ok {
			if err := pushSettings(client, baseURL, settings); err != nil {
				log.Warn("settings push failed", "error", err)
			}
		}

		profile, err := fetchProfile(client, baseURL, bot.Config.Username)
		if err != nil {
			log.Error("profile fetch failed", "error", err)
			continue
		}

		pkg, ok := decidePurchase(bot.Config, profile.Chips, catalog)
		if !ok {
			log.Info("noop", "chips", profile.Chips)
		} else {
			result, err := recordPurchase(client, baseURL, bot.Config.Username, pkg.ID)
			if err != nil {
				log.Error("purchase failed", "package", pkg.ID, "error", err)
			} else {
				log.Info("purchase intent recorded", "package", pkg.ID, "demoMode", result.Note != "")
				bot.ActionsTaken++
				markActed(bot)
			}
		}

		sleepJitter(minDelay, maxDelay)
	}
}

func botsEnabled() bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv("BOTS_ENABLED")))
	if value == "" {
		return true
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

func loadBots() ([]BotConfig, error) {
	if raw := strings.TrimSpace(os.Getenv("BOT_LIST")); raw != "" {
		return parseBots([]byte(raw))
	}
	if raw := strings.TrimSpace(os.Getenv("BOT_LIST_PATH")); raw != "" {
		data, err := os.ReadFile(filepath.Clean(raw))
		if err != nil {
			return nil, err
		}
		return parseBots(data)
	}
	return nil, nil
}

func parseBots(data []byte) ([]BotConfig, error) {
	var bots []BotConfig
	if err := json.Unmarshal(data, &bots); err != nil {
		return nil, err
	}
	for i, bot := range bots {
		if strings.TrimSpace(bot.Username) == "" {
			return nil, fmt.Errorf("bot %d: username is required", i)
		}
	}
	return bots, nil
}

func fetchCatalog(client *http.Client, baseURL string) ([]StorePackage, error) {
	res, err := client.Get(baseURL + "/store")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var response StoreResponse
	if err := decodeJSON(res, &response); err != nil {
		return nil, err
	}
	return response.Packages, nil
}

func fetchProfile(client *http.Client, baseURL string, username string) (*ProfileResponse, error) {
	res, err := client.Get(baseURL + "/profile/" + url.PathEscape(username))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var response ProfileResponse
	if err := decodeJSON(res, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func recordPurchase(client *http.Client, baseURL string, username string, packageID string) (*PurchaseResponse, error) {
	payload := map[string]string{"username": username, "package_id": packageID}
	body, _ := json.Marshal(payload)
	res, err := client.Post(baseURL+"/purchase", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var response PurchaseResponse
	if err := decodeJSON(res, &response); err != nil {
		return nil, err
	}
	if !response.OK {
		return nil, errors.New(response.Error)
	}
	return &response, nil
}

func pushSettings(client *http.Client, baseURL string, settings map[string]interface{}) error {
	body, _ := json.Marshal(settings)
	res, err := client.Post(baseURL+"/settings", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var response SettingsResponse
	if err := decodeJSON(res, &response); err != nil {
		return err
	}
	if !response.Saved {
		return errors.New("settings not saved")
	}
	return nil
}

// botSettings builds a settings payload when the bot configures both
// required toggles.
func botSettings(cfg BotConfig) (map[string]interface{}, bool) {
	if cfg.SoundEnabled == nil || cfg.AnimationsEnabled == nil {
		return nil, false
	}
	settings := map[string]interface{}{
		"sound":      *cfg.SoundEnabled,
		"animations": *cfg.AnimationsEnabled,
	}
	if cfg.PreferredBrightness != nil {
		settings["brightness"] = *cfg.PreferredBrightness
	}
	return settings, true
}

// decidePurchase picks the package a bot records an intent for, if any.
func decidePurchase(cfg BotConfig, chips int64, catalog []StorePackage) (StorePackage, bool) {
	if len(catalog) == 0 {
		return StorePackage{}, false
	}

	if cfg.PreferredPackage != "" {
		for _, pkg := range catalog {
			if pkg.ID == cfg.PreferredPackage {
				return pkg, true
			}
		}
	}

	switch cfg.Strategy {
	case "whale":
		return largestPackage(catalog), true
	case "browser":
		return StorePackage{}, false
	case "topup_when_low", "":
		threshold := cfg.Threshold
		if threshold <= 0 {
			threshold = 5000
		}
		if chips < threshold {
			return cheapestPackage(catalog), true
		}
		return StorePackage{}, false
	default:
		return StorePackage{}, false
	}
}

func cheapestPackage(catalog []StorePackage) StorePackage {
	best := catalog[0]
	for _, pkg := range catalog[1:] {
		if pkg.Price < best.Price {
			best = pkg
		}
	}
	return best
}

func largestPackage(catalog []StorePackage) StorePackage {
	best := catalog[0]
	for _, pkg := range catalog[1:] {
		if pkg.Chips > best.Chips {
			best = pkg
		}
	}
	return best
}

func canActToday(bot *BotState) bool {
	if bot.Config.MaxPurchasesPerDay <= 0 {
		return true
	}
	currentDay := time.Now().UTC().YearDay()
	if bot.LastActionDay != currentDay {
		bot.LastActionDay = currentDay
		bot.ActionsToday = 0
	}
	return bot.ActionsToday < bot.Config.MaxPurchasesPerDay
}

func markActed(bot *BotState) {
	currentDay := time.Now().UTC().YearDay()
	if bot.LastActionDay != currentDay {
		bot.LastActionDay = currentDay
		bot.ActionsToday = 0
	}
	bot.ActionsToday++
}

func decodeJSON(res *http.Response, target interface{}) error {
	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(res.Body).Decode(target)
}

func sleepJitter(minMs int, maxMs int) {
	if minMs <= 0 {
		return
	}
	if maxMs < minMs {
		maxMs = minMs
	}
	jitter := rand.Intn(maxMs-minMs+1) + minMs
	time.Sleep(time.Duration(jitter) * time.Millisecond)
}

func shuffle(states []*BotState) {
	rand.Shuffle(len(states), func(i, j int) {
		states[i], states[j] = states[j], states[i]
	})
}

func parseEnvInt(key string, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseEnvFloat(key string, fallback float64) float64 {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
