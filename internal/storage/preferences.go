package storage

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/models"
)

const (
	unitKey    = "temperatureUnit"
	recentsKey = "recentSearches"
)

// Preferences exposes typed access to the user's local settings. The unit is
// read from the store on first use and cached; writes go straight through.
type Preferences struct {
	store  Store
	logger *zap.Logger

	once sync.Once
	mu   sync.RWMutex
	unit models.TemperatureUnit
}

func NewPreferences(store Store, logger *zap.Logger) *Preferences {
	return &Preferences{store: store, logger: logger}
}

// Unit returns the stored unit, metric when nothing is stored.
func (p *Preferences) Unit() models.TemperatureUnit {
	p.once.Do(p.loadUnit)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.unit
}

func (p *Preferences) SetUnit(unit models.TemperatureUnit) error {
	p.once.Do(p.loadUnit)
	if err := p.store.Set(unitKey, []byte(unit)); err != nil {
		return fmt.Errorf("failed to save unit: %w", err)
	}
	p.mu.Lock()
	p.unit = unit
	p.mu.Unlock()
	return nil
}

func (p *Preferences) loadUnit() {
	p.unit = models.Metric
	raw, ok, err := p.store.Get(unitKey)
	if err != nil {
		p.logger.Warn("Failed to read unit preference", zap.Error(err))
		return
	}
	if ok {
		p.unit = models.ParseTemperatureUnit(string(raw))
	}
}

// Recents loads the saved recent searches. An unreadable blob is treated as
// empty.
func (p *Preferences) Recents() []models.City {
	raw, ok, err := p.store.Get(recentsKey)
	if err != nil {
		p.logger.Warn("Failed to read recent searches", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var cities []models.City
	if err := json.Unmarshal(raw, &cities); err != nil {
		p.logger.Warn("Discarding unreadable recent searches", zap.Error(err))
		return nil
	}
	return cities
}

func (p *Preferences) SaveRecents(cities []models.City) error {
	raw, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("failed to encode recent searches: %w", err)
	}
	if err := p.store.Set(recentsKey, raw); err != nil {
		return fmt.Errorf("failed to save recent searches: %w", err)
	}
	return nil
}
