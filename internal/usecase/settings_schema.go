package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"

	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"

	Clock12h = "12h"
	Clock24h = "24h"
)

// settingsDocV1 is the first whole-blob layout written by the browser.
type settingsDocV1 struct {
	DarkMode  *bool  `json:"darkMode"`
	Celsius   *bool  `json:"celsius"`
	Hour12    bool   `json:"hour12"`
	Currency  string `json:"currency"`
	Compact   bool   `json:"compact"`
	ShowGlobe *bool  `json:"showGlobe"`
}

type settingsDocV2 struct {
	Theme           string `json:"theme"`
	Currency        string `json:"currency"`
	CompactTables   bool   `json:"compactTables"`
	ShowGlobe       bool   `json:"showGlobe"`
	TemperatureUnit string `json:"temperatureUnit"`
	ClockFormat     string `json:"clockFormat"`
}

func defaultSettings(clientID string) domain.Settings {
	return domain.Settings{
		ClientID:        clientID,
		SchemaVersion:   domain.CurrentSettingsSchema,
		Theme:           ThemeSystem,
		Currency:        "USD",
		ShowGlobe:       true,
		TemperatureUnit: UnitCelsius,
		ClockFormat:     Clock24h,
	}
}

// decodeSettings reads a stored record of any supported schema version and
// returns it in the current layout.
func decodeSettings(rec domain.SettingsRecord) (domain.Settings, error) {
	out := defaultSettings(rec.ClientID)
	out.Revision = rec.Revision
	out.UpdatedAt = rec.UpdatedAt

	switch rec.SchemaVersion {
	case 0, 1:
		var v1 settingsDocV1
		if err := json.Unmarshal(rec.Doc, &v1); err != nil {
			return domain.Settings{}, fmt.Errorf("usecase: decode v1 settings: %w", err)
		}
		migrateV1(&out, v1)
	case 2:
		var v2 settingsDocV2
		if err := json.Unmarshal(rec.Doc, &v2); err != nil {
			return domain.Settings{}, fmt.Errorf("usecase: decode v2 settings: %w", err)
		}
		applyV2(&out, v2)
	default:
		return domain.Settings{}, fmt.Errorf("usecase: settings schema version %d is not supported", rec.SchemaVersion)
	}
	return out, nil
}

func migrateV1(dst *domain.Settings, v1 settingsDocV1) {
	if v1.DarkMode != nil {
		if *v1.DarkMode {
			dst.Theme = ThemeDark
		} else {
			dst.Theme = ThemeLight
		}
	}
	if v1.Celsius != nil && !*v1.Celsius {
		dst.TemperatureUnit = UnitFahrenheit
	}
	if v1.Hour12 {
		dst.ClockFormat = Clock12h
	}
	if c, ok := normalizeCurrency(v1.Currency); ok {
		dst.Currency = c
	}
	dst.CompactTables = v1.Compact
	if v1.ShowGlobe != nil {
		dst.ShowGlobe = *v1.ShowGlobe
	}
}

// applyV2 copies valid fields and keeps defaults for blank or invalid ones.
func applyV2(dst *domain.Settings, v2 settingsDocV2) {
	if validTheme(v2.Theme) {
		dst.Theme = v2.Theme
	}
	if c, ok := normalizeCurrency(v2.Currency); ok {
		dst.Currency = c
	}
	dst.CompactTables = v2.CompactTables
	dst.ShowGlobe = v2.ShowGlobe
	if validTemperatureUnit(v2.TemperatureUnit) {
		dst.TemperatureUnit = v2.TemperatureUnit
	}
	if validClockFormat(v2.ClockFormat) {
		dst.ClockFormat = v2.ClockFormat
	}
}

func encodeSettings(s domain.Settings) ([]byte, error) {
	return json.Marshal(settingsDocV2{
		Theme:           s.Theme,
		Currency:        s.Currency,
		CompactTables:   s.CompactTables,
		ShowGlobe:       s.ShowGlobe,
		TemperatureUnit: s.TemperatureUnit,
		ClockFormat:     s.ClockFormat,
	})
}

func validTheme(v string) bool {
	return v == ThemeLight || v == ThemeDark || v == ThemeSystem
}

func validTemperatureUnit(v string) bool {
	return v == UnitCelsius || v == UnitFahrenheit
}

func validClockFormat(v string) bool {
	return v == Clock12h || v == Clock24h
}

func normalizeCurrency(v string) (string, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if len(v) != 3 {
		return "", false
	}
	for _, r := range v {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return v, true
}
