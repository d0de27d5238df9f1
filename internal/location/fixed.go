package location

import (
	"sync"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/models"
)

const eventBuffer = 16

// FixedPlatform is a Platform with a configured permission and fix, used when
// the process runs headless. A prompt moves the status to the configured
// grant. Events are published on Events and never block the caller.
type FixedPlatform struct {
	logger *zap.Logger
	events chan Event

	mu     sync.Mutex
	status Permission
	grant  Permission
	coord  *models.Coordinate
}

// NewFixedPlatform starts in status. A nil coord reports updates without a fix.
func NewFixedPlatform(status, grant Permission, coord *models.Coordinate, logger *zap.Logger) *FixedPlatform {
	return &FixedPlatform{
		logger: logger,
		events: make(chan Event, eventBuffer),
		status: status,
		grant:  grant,
		coord:  coord,
	}
}

func (f *FixedPlatform) Events() <-chan Event {
	return f.events
}

func (f *FixedPlatform) AuthorizationStatus() Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *FixedPlatform) RequestPermission() {
	f.mu.Lock()
	if f.status != PermissionNotDetermined {
		f.mu.Unlock()
		return
	}
	f.status = f.grant
	granted := f.grant
	f.mu.Unlock()

	f.emit(PermissionChanged(granted))
}

func (f *FixedPlatform) RequestLocation() {
	f.mu.Lock()
	var coord *models.Coordinate
	if f.coord != nil {
		c := *f.coord
		coord = &c
	}
	f.mu.Unlock()

	f.emit(LocationResolved(coord))
}

// SetCoordinate changes the fix reported by later requests.
func (f *FixedPlatform) SetCoordinate(coord *models.Coordinate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coord = coord
}

func (f *FixedPlatform) emit(ev Event) {
	select {
	case f.events <- ev:
	default:
		f.logger.Warn("Dropping location event, buffer full", zap.Int("kind", int(ev.Kind)))
	}
}
