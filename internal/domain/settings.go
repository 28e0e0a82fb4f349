package domain

import (
	"errors"
	"time"
)

// CurrentSettingsSchema is the schema version written by this build.
const CurrentSettingsSchema = 2

// ErrRevisionConflict is returned by settings stores when the stored revision
// differs from the one the writer expected.
var ErrRevisionConflict = errors.New("settings revision conflict")

// Settings holds the display preferences of one browser client.
type Settings struct {
	ClientID        string    `json:"clientId"`
	SchemaVersion   int       `json:"schemaVersion"`
	Revision        int64     `json:"revision"`
	Theme           string    `json:"theme"`
	Currency        string    `json:"currency"`
	CompactTables   bool      `json:"compactTables"`
	ShowGlobe       bool      `json:"showGlobe"`
	TemperatureUnit string    `json:"temperatureUnit"`
	ClockFormat     string    `json:"clockFormat"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	Theme           *string `json:"theme,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	CompactTables   *bool   `json:"compactTables,omitempty"`
	ShowGlobe       *bool   `json:"showGlobe,omitempty"`
	TemperatureUnit *string `json:"temperatureUnit,omitempty"`
	ClockFormat     *string `json:"clockFormat,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.Theme == nil && p.Currency == nil && p.CompactTables == nil &&
		p.ShowGlobe == nil && p.TemperatureUnit == nil && p.ClockFormat == nil
}

// SettingsRecord is the persisted form of Settings. Doc holds the
// schema-versioned JSON document; migration happens above the store.
type SettingsRecord struct {
	ClientID      string
	SchemaVersion int
	Revision      int64
	Doc           []byte
	UpdatedAt     time.Time
}
