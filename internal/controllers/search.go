package controllers

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultRecentCapacity = 5
)

type SearchState struct {
	Query        string        `json:"query"`
	Results      []models.City `json:"results"`
	Favorites    []models.City `json:"favorites"`
	Recents      []models.City `json:"recents"`
	IsSearching  bool          `json:"is_searching"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

type SearchOption func(*SearchController)

// WithDebounce sets the quiet interval before a search. Non-positive values
// keep the default.
func WithDebounce(d time.Duration) SearchOption {
	return func(c *SearchController) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithRecentCapacity(n int) SearchOption {
	return func(c *SearchController) {
		if n > 0 {
			c.recentCap = n
		}
	}
}

// WithCitySelector forwards SelectCity to s.
func WithCitySelector(s CitySelector) SearchOption {
	return func(c *SearchController) {
		c.selector = s
	}
}

// SearchController debounces query input into geocoding lookups and keeps
// the favorites and recents lists.
//
// Each SetQuery call starts a new generation and cancels the previous one;
// a search only writes state while its generation is current, so results
// from an older query never replace those of a newer one.
type SearchController struct {
	notifier
	searcher  CitySearcher
	favorites FavoritesStore
	recents   RecentsStore
	selector  CitySelector
	logger    *zap.Logger
	debounce  time.Duration
	recentCap int

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	state  SearchState
	gen    uint64
	cancel context.CancelFunc
}

// NewSearchController loads recents immediately and favorites in the
// background; Wait blocks until the favorites load has finished.
func NewSearchController(searcher CitySearcher, favorites FavoritesStore, recents RecentsStore, logger *zap.Logger, opts ...SearchOption) *SearchController {
	ctx, stop := context.WithCancel(context.Background())
	c := &SearchController{
		searcher:  searcher,
		favorites: favorites,
		recents:   recents,
		logger:    logger,
		debounce:  DefaultDebounce,
		recentCap: DefaultRecentCapacity,
		ctx:       ctx,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state.Recents = c.loadRecents()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.FetchFavorites(ctx)
	}()
	return c
}

func (c *SearchController) State() SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SearchState{
		Query:        c.state.Query,
		Results:      cloneCities(c.state.Results),
		Favorites:    cloneCities(c.state.Favorites),
		Recents:      cloneCities(c.state.Recents),
		IsSearching:  c.state.IsSearching,
		ErrorMessage: c.state.ErrorMessage,
	}
}

// SetQuery replaces the query and cancels any pending search. An empty query
// clears the results before returning; anything else is searched after the
// debounce interval passes without another SetQuery. After Close it does
// nothing.
func (c *SearchController) SetQuery(text string) {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Query = text
	c.state.IsSearching = false

	if text == "" {
		c.state.Results = nil
		c.mu.Unlock()
		c.notify()
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	go c.search(ctx, gen, text)
}

func (c *SearchController) search(ctx context.Context, gen uint64, query string) {
	defer c.wg.Done()

	timer := time.NewTimer(c.debounce)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if !c.begin(gen) {
		return
	}

	cities, err := c.searcher.SearchCities(ctx, query)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.state.ErrorMessage = userMessage(err)
		c.logger.Warn("City search failed", zap.String("query", query), zap.Error(err))
	} else {
		c.state.Results = cities
		c.state.ErrorMessage = ""
		c.logger.Debug("City search completed", zap.String("query", query), zap.Int("results", len(cities)))
	}
	c.state.IsSearching = false
	c.mu.Unlock()
	c.notify()
}

func (c *SearchController) begin(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state.IsSearching = true
	c.mu.Unlock()
	c.notify()
	return true
}

// FetchFavorites reloads favorites from the backend. Signed out means no
// favorites rather than an error.
func (c *SearchController) FetchFavorites(ctx context.Context) {
	favorites, err := c.favorites.ListFavorites(ctx)

	c.mu.Lock()
	switch {
	case errors.Is(err, apperr.ErrNotAuthenticated):
		c.state.Favorites = nil
	case err != nil:
		c.state.ErrorMessage = userMessage(err)
		c.logger.Warn("Fetch favorites failed", zap.Error(err))
	default:
		c.state.Favorites = favorites
	}
	c.mu.Unlock()
	c.notify()
}

// ToggleFavorite removes city from favorites when one with the same name
// exists, otherwise adds it and records it as recent. Favorites are matched
// by cityName, so of two favorites sharing a name the first is removed. The
// list is reloaded from the backend afterwards whether or not the change
// succeeded.
func (c *SearchController) ToggleFavorite(ctx context.Context, city models.City) {
	c.mu.Lock()
	existing, isFavorite := findByName(c.state.Favorites, city.CityName)
	c.mu.Unlock()

	var err error
	if isFavorite {
		err = c.favorites.RemoveFavorite(ctx, existing.ID)
	} else {
		err = c.favorites.AddFavorite(ctx, city)
		if err == nil {
			c.AddToRecents(city)
		}
	}

	c.FetchFavorites(ctx)

	if err != nil {
		c.logger.Warn("Toggle favorite failed",
			zap.String("city", city.CityName),
			zap.Bool("was_favorite", isFavorite),
			zap.Error(err))
		c.mu.Lock()
		c.state.ErrorMessage = userMessage(err)
		c.mu.Unlock()
		c.notify()
	}
}

// IsFavorite is a local lookup by cityName.
func (c *SearchController) IsFavorite(city models.City) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := findByName(c.state.Favorites, city.CityName)
	return ok
}

// AddToRecents moves city to the front of the recents, dropping any earlier
// entry with the same name and anything past capacity.
func (c *SearchController) AddToRecents(city models.City) {
	c.mu.Lock()
	recents := make([]models.City, 0, c.recentCap)
	recents = append(recents, city)
	for _, r := range c.state.Recents {
		if len(recents) == c.recentCap {
			break
		}
		if r.CityName != city.CityName {
			recents = append(recents, r)
		}
	}
	c.state.Recents = recents
	snapshot := cloneCities(recents)
	c.mu.Unlock()

	if err := c.recents.SaveRecents(snapshot); err != nil {
		c.logger.Warn("Failed to save recent searches", zap.Error(err))
	}
	c.notify()
}

// SelectCity records city as recent and hands it to the configured selector.
func (c *SearchController) SelectCity(ctx context.Context, city models.City) {
	c.AddToRecents(city)
	if c.selector != nil {
		c.selector.SelectCity(ctx, city)
	}
}

// Wait blocks until no search or background load is running. It must not
// run concurrently with SetQuery; use Close to stop a controller that is
// still taking input.
func (c *SearchController) Wait() {
	c.wg.Wait()
}

// Close cancels pending work and waits for it to stop. SetQuery checks for
// the stop under mu, so no search is added once Close is waiting.
func (c *SearchController) Close() {
	c.mu.Lock()
	c.stop()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *SearchController) loadRecents() []models.City {
	recents := c.recents.Recents()
	if len(recents) > c.recentCap {
		recents = recents[:c.recentCap]
	}
	return recents
}

func findByName(cities []models.City, name string) (models.City, bool) {
	for _, city := range cities {
		if city.CityName == name {
			return city, true
		}
	}
	return models.City{}, false
}

func cloneCities(cities []models.City) []models.City {
	if cities == nil {
		return nil
	}
	out := make([]models.City, len(cities))
	copy(out, cities)
	return out
}
