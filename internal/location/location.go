// Package location turns the device's callback-driven permission and
// location interface into a single blocking call.
//
// At most one request is outstanding. The platform answers through events
// fed to Deliver (or Listen); each event settles the pending request at most
// once and frees the slot.
package location

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

type Permission int

const (
	PermissionNotDetermined Permission = iota
	PermissionDenied
	PermissionRestricted
	PermissionAuthorized
)

func (p Permission) String() string {
	switch p {
	case PermissionDenied:
		return "denied"
	case PermissionRestricted:
		return "restricted"
	case PermissionAuthorized:
		return "authorized"
	default:
		return "not_determined"
	}
}

// ParsePermission accepts the String forms; anything else is NotDetermined.
func ParsePermission(s string) Permission {
	switch s {
	case "denied":
		return PermissionDenied
	case "restricted":
		return PermissionRestricted
	case "authorized":
		return PermissionAuthorized
	default:
		return PermissionNotDetermined
	}
}

type EventKind int

const (
	EventPermissionChanged EventKind = iota
	EventLocationResolved
	EventLocationFailed
)

// Event is one platform callback. Coordinate is nil when the platform
// reported an update without a fix.
type Event struct {
	Kind       EventKind
	Permission Permission
	Coordinate *models.Coordinate
	Err        error
}

func PermissionChanged(p Permission) Event {
	return Event{Kind: EventPermissionChanged, Permission: p}
}

func LocationResolved(coord *models.Coordinate) Event {
	return Event{Kind: EventLocationResolved, Coordinate: coord}
}

func LocationFailed(err error) Event {
	return Event{Kind: EventLocationFailed, Err: err}
}

// Platform is the device side. RequestPermission and RequestLocation must not
// block; their outcome arrives later as an Event.
type Platform interface {
	AuthorizationStatus() Permission
	RequestPermission()
	RequestLocation()
}

type result struct {
	coord models.Coordinate
	err   error
}

type Provider struct {
	platform Platform
	logger   *zap.Logger

	mu                 sync.Mutex
	pending            chan result
	awaitingPermission bool
}

func NewProvider(platform Platform, logger *zap.Logger) *Provider {
	return &Provider{
		platform: platform,
		logger:   logger,
	}
}

// Status reports the platform's current authorization.
func (p *Provider) Status() Permission {
	return p.platform.AuthorizationStatus()
}

func (p *Provider) RequestPermission() {
	p.platform.RequestPermission()
}

// GetCurrentLocation blocks until the platform settles the request or ctx is
// done. A call made while another is outstanding fails at once with
// apperr.ErrCancelled.
func (p *Provider) GetCurrentLocation(ctx context.Context) (models.Coordinate, error) {
	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		p.logger.Debug("Location request rejected, another is in flight")
		return models.Coordinate{}, apperr.ErrCancelled
	}

	status := p.platform.AuthorizationStatus()
	if status == PermissionDenied || status == PermissionRestricted {
		p.mu.Unlock()
		return models.Coordinate{}, apperr.ErrPermissionDenied
	}

	ch := make(chan result, 1)
	p.pending = ch
	p.awaitingPermission = status == PermissionNotDetermined
	p.mu.Unlock()

	// Platform calls happen outside the lock: a platform may answer synchronously.
	if status == PermissionNotDetermined {
		p.logger.Info("Requesting location permission")
		p.platform.RequestPermission()
	} else {
		p.platform.RequestLocation()
	}

	select {
	case r := <-ch:
		return r.coord, r.err
	case <-ctx.Done():
		p.release(ch)
		// A result may have landed while ctx fired; the caller gave up either way.
		return models.Coordinate{}, apperr.New(apperr.KindCancelled, ctx.Err())
	}
}

// Deliver applies one platform event to the pending request, if any.
func (p *Provider) Deliver(ev Event) {
	p.mu.Lock()
	if p.pending == nil {
		p.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventPermissionChanged:
		if !p.awaitingPermission {
			p.mu.Unlock()
			return
		}
		switch ev.Permission {
		case PermissionAuthorized:
			p.awaitingPermission = false
			p.mu.Unlock()
			p.logger.Info("Location permission granted")
			p.platform.RequestLocation()
		case PermissionDenied, PermissionRestricted:
			p.settle(result{err: apperr.ErrPermissionDenied})
		default:
			p.mu.Unlock()
		}

	case EventLocationResolved:
		if ev.Coordinate == nil {
			p.settle(result{err: apperr.ErrLocationUnavailable})
			return
		}
		p.settle(result{coord: *ev.Coordinate})

	case EventLocationFailed:
		p.logger.Warn("Location fetch failed", zap.Error(ev.Err))
		p.settle(result{err: apperr.New(apperr.KindLocationFailed, ev.Err)})

	default:
		p.mu.Unlock()
	}
}

// Listen delivers events until ctx is done or events is closed.
func (p *Provider) Listen(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.Deliver(ev)
		}
	}
}

// settle must be called with p.mu held; it frees the slot before sending.
func (p *Provider) settle(r result) {
	ch := p.pending
	p.pending = nil
	p.awaitingPermission = false
	p.mu.Unlock()
	ch <- r
}

func (p *Provider) release(ch chan result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == ch {
		p.pending = nil
		p.awaitingPermission = false
	}
}
