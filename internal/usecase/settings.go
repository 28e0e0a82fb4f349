package usecase

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type SettingsStore interface {
	Get(ctx context.Context, clientID string) (domain.SettingsRecord, bool, error)
	Put(ctx context.Context, rec domain.SettingsRecord, expectedRevision int64) error
}

// SettingsService reads and partially updates per-client display settings.
type SettingsService struct {
	store SettingsStore
	now   func() time.Time
}

func NewSettingsService(store SettingsStore) (*SettingsService, error) {
	if store == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	return &SettingsService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get returns the client's settings, or defaults at revision 0 when none are
// stored. Older schema versions are migrated in memory.
func (s *SettingsService) Get(ctx context.Context, clientID string) (domain.Settings, error) {
	if !clientIDPattern.MatchString(clientID) {
		return domain.Settings{}, newError(ErrorInvalidInput, "invalid_client_id", nil)
	}
	return s.load(ctx, clientID)
}

// Patch applies the non-nil fields of patch. When ifMatch is set it must equal
// the stored revision.
func (s *SettingsService) Patch(ctx context.Context, clientID string, patch domain.SettingsPatch, ifMatch *int64) (domain.Settings, error) {
	if !clientIDPattern.MatchString(clientID) {
		return domain.Settings{}, newError(ErrorInvalidInput, "invalid_client_id", nil)
	}
	if patch.IsEmpty() {
		return domain.Settings{}, newError(ErrorInvalidInput, "empty_patch", nil)
	}

	current, err := s.load(ctx, clientID)
	if err != nil {
		return domain.Settings{}, err
	}
	if ifMatch != nil && *ifMatch != current.Revision {
		return domain.Settings{}, newError(ErrorConflict, "revision_mismatch", nil)
	}

	next, err := applyPatch(current, patch)
	if err != nil {
		return domain.Settings{}, err
	}
	next.SchemaVersion = domain.CurrentSettingsSchema
	next.Revision = current.Revision + 1
	next.UpdatedAt = s.now()

	doc, err := encodeSettings(next)
	if err != nil {
		return domain.Settings{}, newError(ErrorInternal, "settings_encode_error", err)
	}
	err = s.store.Put(ctx, domain.SettingsRecord{
		ClientID:      clientID,
		SchemaVersion: next.SchemaVersion,
		Revision:      next.Revision,
		Doc:           doc,
		UpdatedAt:     next.UpdatedAt,
	}, current.Revision)
	if err != nil {
		if errors.Is(err, domain.ErrRevisionConflict) {
			return domain.Settings{}, newError(ErrorConflict, "concurrent_update", err)
		}
		return domain.Settings{}, newError(ErrorInternal, "settings_write_error", err)
	}
	return next, nil
}

func (s *SettingsService) load(ctx context.Context, clientID string) (domain.Settings, error) {
	rec, found, err := s.store.Get(ctx, clientID)
	if err != nil {
		return domain.Settings{}, newError(ErrorInternal, "settings_read_error", err)
	}
	if !found {
		return defaultSettings(clientID), nil
	}
	rec.ClientID = clientID
	out, err := decodeSettings(rec)
	if err != nil {
		return domain.Settings{}, newError(ErrorInternal, "settings_schema_unsupported", err)
	}
	return out, nil
}

func applyPatch(s domain.Settings, p domain.SettingsPatch) (domain.Settings, error) {
	if p.Theme != nil {
		if !validTheme(*p.Theme) {
			return domain.Settings{}, newError(ErrorInvalidInput, "invalid_theme", nil)
		}
		s.Theme = *p.Theme
	}
	if p.Currency != nil {
		c, ok := normalizeCurrency(*p.Currency)
		if !ok {
			return domain.Settings{}, newError(ErrorInvalidInput, "invalid_currency", nil)
		}
		s.Currency = c
	}
	if p.CompactTables != nil {
		s.CompactTables = *p.CompactTables
	}
	if p.ShowGlobe != nil {
		s.ShowGlobe = *p.ShowGlobe
	}
	if p.TemperatureUnit != nil {
		if !validTemperatureUnit(*p.TemperatureUnit) {
			return domain.Settings{}, newError(ErrorInvalidInput, "invalid_temperature_unit", nil)
		}
		s.TemperatureUnit = *p.TemperatureUnit
	}
	if p.ClockFormat != nil {
		if !validClockFormat(*p.ClockFormat) {
			return domain.Settings{}, newError(ErrorInvalidInput, "invalid_clock_format", nil)
		}
		s.ClockFormat = *p.ClockFormat
	}
	return s, nil
}
