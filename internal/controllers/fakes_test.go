package controllers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bobby-s-dev/weather-client/internal/location"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]models.City
	err     error
	// hold makes a query wait for ctx cancellation before answering.
	hold    map[string]bool
	started chan string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results: map[string][]models.City{},
		hold:    map[string]bool{},
		started: make(chan string, 16),
	}
}

func (f *fakeSearcher) SearchCities(ctx context.Context, query string) ([]models.City, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	hold := f.hold[query]
	results := f.results[query]
	err := f.err
	f.mu.Unlock()

	f.started <- query
	if hold {
		<-ctx.Done()
		// answer anyway, as a provider that ignores cancellation would
		return results, nil
	}
	return results, err
}

func (f *fakeSearcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeFavorites struct {
	mu          sync.Mutex
	cities      []models.City
	listCalls   int
	addCalls    int
	removeCalls []uuid.UUID
	listErr     error
	addErr      error
	removeErr   error
}

func (f *fakeFavorites) ListFavorites(ctx context.Context) ([]models.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.City(nil), f.cities...), nil
}

func (f *fakeFavorites) AddFavorite(ctx context.Context, city models.City) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	owner := uuid.New()
	city.ID = uuid.New()
	city.UserID = &owner
	f.cities = append([]models.City{city}, f.cities...)
	return nil
}

func (f *fakeFavorites) RemoveFavorite(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, id)
	if f.removeErr != nil {
		return f.removeErr
	}
	kept := f.cities[:0]
	for _, c := range f.cities {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.cities = kept
	return nil
}

func (f *fakeFavorites) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeRecents struct {
	mu      sync.Mutex
	initial []models.City
	saved   [][]models.City
}

func (f *fakeRecents) Recents() []models.City {
	return f.initial
}

func (f *fakeRecents) SaveRecents(cities []models.City) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, cities)
	return nil
}

func (f *fakeRecents) Last() []models.City {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

type fakeSelector struct {
	selected []models.City
}

func (f *fakeSelector) SelectCity(ctx context.Context, city models.City) {
	f.selected = append(f.selected, city)
}

type fakeWeather struct {
	mu            sync.Mutex
	current       models.Weather
	forecast      []models.Weather
	currentErr    error
	forecastErr   error
	currentCalls  int
	forecastCalls int
	lastCoord     models.Coordinate
	lastUnit      models.TemperatureUnit
	// tempFromLat reports the requested latitude as the current temperature.
	tempFromLat bool
	holds       map[float64]chan struct{}
	started     chan float64
}

// hold makes current-weather calls for lat block until the returned channel
// is closed.
func (f *fakeWeather) hold(lat float64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holds == nil {
		f.holds = make(map[float64]chan struct{})
	}
	ch := make(chan struct{})
	f.holds[lat] = ch
	return ch
}

func (f *fakeWeather) FetchCurrent(ctx context.Context, lat, lon float64, unit models.TemperatureUnit) (models.Weather, error) {
	f.mu.Lock()
	f.currentCalls++
	f.lastCoord = models.Coordinate{Lat: lat, Lon: lon}
	f.lastUnit = unit
	current, err := f.current, f.currentErr
	if f.tempFromLat {
		current.Temp = lat
	}
	gate := f.holds[lat]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- lat
	}
	if gate != nil {
		<-gate
	}
	return current, err
}

func (f *fakeWeather) Fetch5DayForecast(ctx context.Context, lat, lon float64, unit models.TemperatureUnit) ([]models.Weather, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecastCalls++
	return f.forecast, f.forecastErr
}

type fakeLocation struct {
	coord models.Coordinate
	err   error
	calls int
}

func (f *fakeLocation) GetCurrentLocation(ctx context.Context) (models.Coordinate, error) {
	f.calls++
	return f.coord, f.err
}

type fakeUnits struct {
	unit   models.TemperatureUnit
	setErr error
}

func (f *fakeUnits) Unit() models.TemperatureUnit {
	if f.unit == "" {
		return models.Metric
	}
	return f.unit
}

func (f *fakeUnits) SetUnit(unit models.TemperatureUnit) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.unit = unit
	return nil
}

type fakeAuth struct {
	mu          sync.Mutex
	user        *models.User
	signInCalls int
	signUpCalls int
	signOuts    int
	lastEmail   string
	pairs       map[string]string
	err         error
	signOutErr  error
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpCalls++
	return f.login(email, password)
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	return f.login(email, password)
}

func (f *fakeAuth) login(email, password string) (models.User, error) {
	f.lastEmail = email
	if f.pairs == nil {
		f.pairs = map[string]string{}
	}
	f.pairs[email] = password
	if f.err != nil {
		return models.User{}, f.err
	}
	u := models.User{ID: uuid.New(), Email: email}
	f.user = &u
	return u, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.user = nil
	return f.signOutErr
}

func (f *fakeAuth) GetCurrentUser() (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return models.User{}, false
	}
	return *f.user, true
}

type fakePermissions struct {
	status   location.Permission
	requests int
}

func (f *fakePermissions) Status() location.Permission {
	return f.status
}

func (f *fakePermissions) RequestPermission() {
	f.requests++
	if f.status == location.PermissionNotDetermined {
		f.status = location.PermissionAuthorized
	}
}
