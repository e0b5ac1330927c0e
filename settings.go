package main

import "net/http"

const (
	defaultBrightness = 50
	minBrightness     = 0
	maxBrightness     = 100
)

// settingsHandler validates a settings payload and echoes it back. Nothing
// is persisted.
func settingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	payload, err := parseSettingsPayload(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Saved: true, SettingsPayload: payload})
}

func parseSettingsPayload(r *http.Request) (SettingsPayload, error) {
	fields, err := bodyFields(r)
	if err != nil {
		return SettingsPayload{}, err
	}
	verr := &ValidationError{}
	payload := SettingsPayload{
		Sound:      requireBool(fields, "sound", verr),
		Animations: requireBool(fields, "animations", verr),
		Brightness: optionalIntInRange(fields, "brightness", defaultBrightness, minBrightness, maxBrightness, verr),
	}
	if err := verr.orNil(); err != nil {
		return SettingsPayload{}, err
	}
	return payload, nil
}
