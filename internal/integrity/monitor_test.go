package integrity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeEnvironment struct {
	mu           sync.Mutex
	navigation   NavigationType
	visibility   map[int]func(bool)
	beforeUnload map[int]func() bool
	fullscreen   map[int]func(bool)
	methods      []FullscreenMethod
	navigated    []string
	nextID       int
}

func newFakeEnvironment(nav NavigationType) *fakeEnvironment {
	return &fakeEnvironment{
		navigation:   nav,
		visibility:   make(map[int]func(bool)),
		beforeUnload: make(map[int]func() bool),
		fullscreen:   make(map[int]func(bool)),
	}
}

func (e *fakeEnvironment) NavigationType() NavigationType { return e.navigation }

func (e *fakeEnvironment) OnVisibilityChange(fn func(bool)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.visibility[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.visibility, id)
	}
}

func (e *fakeEnvironment) OnBeforeUnload(fn func() bool) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.beforeUnload[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.beforeUnload, id)
	}
}

func (e *fakeEnvironment) OnFullscreenChange(fn func(bool)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.fullscreen[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.fullscreen, id)
	}
}

func (e *fakeEnvironment) FullscreenMethods() []FullscreenMethod { return e.methods }

func (e *fakeEnvironment) Navigate(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.navigated = append(e.navigated, url)
}

func (e *fakeEnvironment) listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.visibility) + len(e.beforeUnload) + len(e.fullscreen)
}

func (e *fakeEnvironment) hide() {
	e.mu.Lock()
	handlers := make([]func(bool), 0, len(e.visibility))
	for _, fn := range e.visibility {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(true)
	}
}

func (e *fakeEnvironment) show() {
	e.mu.Lock()
	handlers := make([]func(bool), 0, len(e.visibility))
	for _, fn := range e.visibility {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(false)
	}
}

func (e *fakeEnvironment) exitFullscreen() {
	e.mu.Lock()
	handlers := make([]func(bool), 0, len(e.fullscreen))
	for _, fn := range e.fullscreen {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(false)
	}
}

func (e *fakeEnvironment) closeAttempt() (asked bool) {
	e.mu.Lock()
	handlers := make([]func() bool, 0, len(e.beforeUnload))
	for _, fn := range e.beforeUnload {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		asked = fn() || asked
	}
	return asked
}

func (e *fakeEnvironment) navigations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.navigated...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	warnings  []string
	terminals []string
	panics    bool
}

func (n *fakeNotifier) Warn(message string) {
	if n.panics {
		panic("toast container missing")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, message)
}

func (n *fakeNotifier) Terminal(message string) {
	if n.panics {
		panic("toast container missing")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.terminals = append(n.terminals, message)
}

type MockFlagger struct {
	mock.Mock
}

func (m *MockFlagger) Flag(ctx context.Context, flag models.ReviewFlag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

// ==========================
// Test Helpers
// ==========================

type fixture struct {
	monitor    *Monitor
	env        *fakeEnvironment
	notifier   *fakeNotifier
	store      *credentials.Store
	clock      *clock.FakeClock
	events     []models.IntegrityEvent
	terminated []string
}

func createConfig(policy string, threshold int) *Config {
	return &Config{
		Policy:        policy,
		Threshold:     threshold,
		RedirectDelay: 3 * time.Second,
		EntryURL:      "/careers",
	}
}

func newFixture(t *testing.T, nav NavigationType, cfg *Config, flagger *MockFlagger) *fixture {
	t.Helper()
	f := &fixture{
		env:      newFakeEnvironment(nav),
		notifier: &fakeNotifier{},
		store:    credentials.NewMemoryStore(nil),
		clock:    clock.Fake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, f.store.SetSessionCredential(context.Background(), "session-token"))
	require.NoError(t, f.store.SetRecruiterCredential(context.Background(), "recruiter-token"))

	opts := Options{
		Config:      cfg,
		Environment: f.env,
		Credentials: f.store,
		Notifier:    f.notifier,
		Clock:       f.clock,
		Logger:      logger.NewTestLogger(t),
	}
	if flagger != nil {
		opts.Flagger = flagger
	}
	monitor, err := NewMonitor(opts)
	require.NoError(t, err)
	f.monitor = monitor
	return f
}

func (f *fixture) mount(t *testing.T) {
	t.Helper()
	require.NoError(t, f.monitor.Mount(context.Background(), Hooks{
		Session: func() (string, int64, models.Stage) {
			return "1001", 42, models.StageQuiz
		},
		OnEvent:     func(e models.IntegrityEvent) { f.events = append(f.events, e) },
		OnTerminate: func(reason string) { f.terminated = append(f.terminated, reason) },
	}))
}

// ==========================
// Construction Tests
// ==========================

func TestNewMonitor(t *testing.T) {
	env := newFakeEnvironment(NavigationNavigate)
	store := credentials.NewMemoryStore(nil)

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "defaults", opts: Options{Environment: env, Credentials: store}},
		{name: "bad policy", opts: Options{Config: createConfig("ignore", 1), Environment: env, Credentials: store}, wantErr: "policy must be one of"},
		{name: "bad threshold", opts: Options{Config: createConfig(config.PolicyLog, 0), Environment: env, Credentials: store}, wantErr: "threshold must be positive"},
		{name: "missing environment", opts: Options{Credentials: store}, wantErr: "environment is required"},
		{name: "missing store", opts: Options{Environment: env}, wantErr: "credential store is required"},
		{name: "flag without flagger", opts: Options{Config: createConfig(config.PolicyFlag, 2), Environment: env, Credentials: store}, wantErr: "review flagger is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor, err := NewMonitor(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, monitor)
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.IntegrityConfig{Policy: config.PolicyFail, ReloadRedirectDelay: 1500})

	assert.Equal(t, config.PolicyFail, cfg.Policy)
	assert.Equal(t, 3, cfg.Threshold)
	assert.Equal(t, 1500*time.Millisecond, cfg.RedirectDelay)
	assert.Equal(t, "/", cfg.EntryURL)
	assert.False(t, cfg.RequireFullscreen)
}

// ==========================
// Listener Lifecycle Tests
// ==========================

func TestMonitor_UnmountReleasesEveryListener(t *testing.T) {
	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyLog, 3), nil)

	f.mount(t)
	assert.Equal(t, 3, f.env.listeners())
	assert.Error(t, f.monitor.Mount(context.Background(), Hooks{}))

	f.monitor.Unmount()
	assert.Equal(t, 0, f.env.listeners())

	f.monitor.Unmount()
	f.mount(t)
	assert.Equal(t, 3, f.env.listeners())
}

// ==========================
// Visibility Tests
// ==========================

func TestMonitor_TabHiddenIsANonBlockingWarning(t *testing.T) {
	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyLog, 1), nil)
	f.mount(t)

	f.env.show()
	f.env.hide()
	f.env.hide()

	require.Len(t, f.events, 2)
	assert.Equal(t, models.IntegrityTabHidden, f.events[0].Kind)
	assert.Equal(t, models.StageQuiz, f.events[0].Stage)
	assert.NotEmpty(t, f.events[0].ID)
	assert.Equal(t, []string{MessageTabHidden, MessageTabHidden}, f.notifier.warnings)
	assert.Len(t, f.monitor.Events(), 2)
	assert.False(t, f.monitor.Terminated())
	assert.True(t, f.store.HasSessionCredential(context.Background()))
}

// ==========================
// Reload Tests
// ==========================

func TestMonitor_ReloadRevokesAndRedirectsOnce(t *testing.T) {
	f := newFixture(t, NavigationReload, createConfig(config.PolicyLog, 3), nil)

	f.mount(t)

	assert.False(t, f.store.HasSessionCredential(context.Background()))
	recruiter, err := f.store.RecruiterCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recruiter-token", recruiter)

	assert.Equal(t, []string{MessageReload}, f.notifier.terminals)
	assert.Equal(t, []string{ReasonReload}, f.terminated)
	require.Len(t, f.events, 1)
	assert.Equal(t, models.IntegrityReloadDetected, f.events[0].Kind)
	assert.Equal(t, 1, f.clock.PendingTimers())

	f.monitor.DetectReload()
	f.monitor.DetectReload()
	assert.Equal(t, 1, f.clock.PendingTimers())
	assert.Len(t, f.notifier.terminals, 1)

	f.clock.Advance(2 * time.Second)
	assert.Empty(t, f.env.navigations())

	f.clock.Advance(time.Second)
	assert.Equal(t, []string{"/careers"}, f.env.navigations())

	f.clock.Advance(time.Minute)
	assert.Len(t, f.env.navigations(), 1)
}

func TestMonitor_UnmountStopsRedirect(t *testing.T) {
	f := newFixture(t, NavigationReload, createConfig(config.PolicyLog, 3), nil)
	f.mount(t)
	require.Equal(t, 1, f.clock.PendingTimers())

	f.monitor.Unmount()

	assert.Equal(t, 0, f.clock.PendingTimers())
	f.clock.Advance(time.Minute)
	assert.Empty(t, f.env.navigations())
}

func TestMonitor_EventsAfterTerminationAreIgnored(t *testing.T) {
	f := newFixture(t, NavigationReload, createConfig(config.PolicyLog, 3), nil)
	f.mount(t)

	f.env.hide()
	f.env.exitFullscreen()

	assert.Len(t, f.events, 1)
	assert.Empty(t, f.notifier.warnings)
}

// ==========================
// Close Attempt Tests
// ==========================

func TestMonitor_CloseAttemptAsksForConfirmation(t *testing.T) {
	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyLog, 3), nil)
	f.mount(t)

	assert.True(t, f.env.closeAttempt())
	assert.True(t, f.store.HasSessionCredential(context.Background()))
	assert.Empty(t, f.events)
}

func TestMonitor_CloseAttemptAfterTermination(t *testing.T) {
	f := newFixture(t, NavigationReload, createConfig(config.PolicyLog, 3), nil)
	f.mount(t)

	assert.False(t, f.env.closeAttempt())
}

// ==========================
// Fullscreen Tests
// ==========================

func TestMonitor_FullscreenTriesMethodsInOrder(t *testing.T) {
	cfg := createConfig(config.PolicyLog, 3)
	cfg.RequireFullscreen = true
	f := newFixture(t, NavigationNavigate, cfg, nil)

	var tried []string
	attempt := func(name string, err error) func() error {
		return func() error {
			tried = append(tried, name)
			return err
		}
	}
	f.env.methods = []FullscreenMethod{
		{Name: "requestFullscreen", Request: attempt("standard", fmt.Errorf("not allowed"))},
		{Name: "webkitRequestFullscreen", Request: attempt("webkit", nil)},
		{Name: "msRequestFullscreen", Request: attempt("ms", nil)},
	}

	f.mount(t)

	assert.Equal(t, []string{"standard", "webkit"}, tried)
}

func TestMonitor_FullscreenIsBestEffort(t *testing.T) {
	cfg := createConfig(config.PolicyLog, 3)
	cfg.RequireFullscreen = true
	f := newFixture(t, NavigationNavigate, cfg, nil)
	f.env.methods = []FullscreenMethod{
		{Name: "requestFullscreen", Request: func() error { panic("unsupported") }},
	}

	assert.NotPanics(t, func() { f.mount(t) })
	assert.Error(t, f.monitor.RequestFullscreen())
}

func TestMonitor_FullscreenExitIsRecorded(t *testing.T) {
	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyLog, 3), nil)
	f.mount(t)

	f.env.exitFullscreen()

	require.Len(t, f.events, 1)
	assert.Equal(t, models.IntegrityFullscreenExit, f.events[0].Kind)
	assert.Equal(t, []string{MessageFullscreenExit}, f.notifier.warnings)
}

// ==========================
// Robustness Tests
// ==========================

func TestMonitor_HandlersNeverPanic(t *testing.T) {
	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyLog, 3), nil)
	f.notifier.panics = true
	f.mount(t)

	assert.NotPanics(t, func() {
		f.env.hide()
		f.env.exitFullscreen()
		f.monitor.DetectReload()
	})
	assert.False(t, f.store.HasSessionCredential(context.Background()))
}

// ==========================
// Policy Tests
// ==========================

func TestMonitor_FlagPolicyRaisesOneFlag(t *testing.T) {
	flagger := &MockFlagger{}
	flagger.On("Flag", mock.Anything, mock.MatchedBy(func(flag models.ReviewFlag) bool {
		return flag.SessionID == "1001" && flag.JobID == 42 && len(flag.Events) == 2
	})).Return(nil).Once()

	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyFlag, 2), flagger)
	f.mount(t)

	f.env.hide()
	flagger.AssertNotCalled(t, "Flag", mock.Anything, mock.Anything)

	f.env.exitFullscreen()
	f.env.hide()

	flagger.AssertExpectations(t)
	flagger.AssertNumberOfCalls(t, "Flag", 1)
	assert.False(t, f.monitor.Terminated())
}

func TestMonitor_FlagPolicyRetriesAfterFailure(t *testing.T) {
	flagger := &MockFlagger{}
	flagger.On("Flag", mock.Anything, mock.Anything).Return(fmt.Errorf("cluster unavailable")).Once()
	flagger.On("Flag", mock.Anything, mock.Anything).Return(nil).Once()

	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyFlag, 1), flagger)
	f.mount(t)

	f.env.hide()
	f.env.hide()
	f.env.hide()

	flagger.AssertNumberOfCalls(t, "Flag", 2)
}

func TestMonitor_FailPolicyTerminates(t *testing.T) {
	f := newFixture(t, NavigationNavigate, createConfig(config.PolicyFail, 2), nil)
	f.mount(t)

	f.env.hide()
	assert.False(t, f.monitor.Terminated())

	f.env.hide()

	assert.True(t, f.monitor.Terminated())
	assert.False(t, f.store.HasSessionCredential(context.Background()))
	assert.Equal(t, []string{ReasonThreshold}, f.terminated)
	assert.Equal(t, []string{MessageThreshold}, f.notifier.terminals)

	f.clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"/careers"}, f.env.navigations())
}
