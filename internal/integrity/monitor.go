// Package integrity watches the host environment for exam-integrity
// signals while a candidate session is mounted: tab visibility, page
// reloads, close attempts and fullscreen.
package integrity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"
	"candidate-interview/internal/review"

	"github.com/google/uuid"
)

const (
	MessageTabHidden      = "Tab was changed. Please stay on this tab, screen recording is in progress."
	MessageFullscreenExit = "Fullscreen was exited. Please return to fullscreen to continue."
	MessageReload         = "Page was refreshed. This interview session has ended and you will be redirected."
	MessageThreshold      = "Too many integrity warnings. This interview session has ended."
)

// Termination reasons passed to Hooks.OnTerminate.
const (
	ReasonReload    = "page_reload"
	ReasonThreshold = "integrity_threshold"
)

const flagTimeout = 10 * time.Second

type Options struct {
	Config      *Config
	Environment Environment
	Credentials *credentials.Store
	Notifier    Notifier
	Flagger     review.Flagger
	Clock       clock.Clock
	Logger      logger.Logger
}

type Monitor struct {
	config      *Config
	env         Environment
	credentials *credentials.Store
	notifier    Notifier
	flagger     review.Flagger
	clock       clock.Clock
	logger      logger.Logger

	mu         sync.Mutex
	mounted    bool
	ctx        context.Context
	hooks      Hooks
	unregister []func()
	redirect   *clock.Timer
	terminated bool
	flagged    bool
	events     []models.IntegrityEvent
	warnings   int
}

func NewMonitor(opts Options) (*Monitor, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid integrity configuration: %w", err)
	}
	if opts.Environment == nil {
		return nil, fmt.Errorf("invalid integrity configuration: environment is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("invalid integrity configuration: credential store is required")
	}
	if cfg.Policy == config.PolicyFlag && opts.Flagger == nil {
		return nil, fmt.Errorf("invalid integrity configuration: review flagger is required for the flag policy")
	}

	log := logger.OrDefault(opts.Logger).WithFields(map[string]interface{}{"component": "integrity"})
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Monitor{
		config:      cfg,
		env:         opts.Environment,
		credentials: opts.Credentials,
		notifier:    notifier,
		flagger:     opts.Flagger,
		clock:       clk,
		logger:      log,
	}, nil
}

// Mount registers every listener and inspects how the page was reached.
// A reload terminates the session immediately.
func (m *Monitor) Mount(ctx context.Context, hooks Hooks) error {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return fmt.Errorf("integrity monitor already mounted")
	}
	m.mounted = true
	m.ctx = ctx
	m.hooks = hooks
	m.terminated = false
	m.flagged = false
	m.events = nil
	m.warnings = 0
	m.mu.Unlock()

	unregister := []func(){
		m.env.OnVisibilityChange(m.handleVisibility),
		m.env.OnBeforeUnload(m.handleBeforeUnload),
		m.env.OnFullscreenChange(m.handleFullscreen),
	}

	m.mu.Lock()
	m.unregister = unregister
	m.mu.Unlock()

	if m.navigationType() == NavigationReload {
		m.DetectReload()
		return nil
	}
	if m.config.RequireFullscreen {
		if err := m.RequestFullscreen(); err != nil {
			m.logger.Warn("Fullscreen unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return nil
}

// Unmount removes every listener and stops a pending redirect.
func (m *Monitor) Unmount() {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.mounted = false
	unregister := m.unregister
	m.unregister = nil
	timer := m.redirect
	m.redirect = nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	for _, fn := range unregister {
		m.safely("unregister", fn)
	}
}

// DetectReload revokes the session credential, tells the candidate and
// schedules the redirect to the entry point. It acts once per mount.
func (m *Monitor) DetectReload() {
	defer m.recoverPanic("reload")
	m.terminate(ReasonReload, MessageReload, models.IntegrityReloadDetected)
}

// RequestFullscreen tries each fullscreen method in order until one works.
func (m *Monitor) RequestFullscreen() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fullscreen request panicked: %v", r)
		}
	}()

	methods := m.env.FullscreenMethods()
	for _, method := range methods {
		if method.Request == nil {
			continue
		}
		if reqErr := method.Request(); reqErr != nil {
			m.logger.Debug("Fullscreen method failed", map[string]interface{}{
				"method": method.Name,
				"error":  reqErr.Error(),
			})
			continue
		}
		return nil
	}
	return fmt.Errorf("no fullscreen method succeeded out of %d", len(methods))
}

// Events returns the events recorded during the current mount.
func (m *Monitor) Events() []models.IntegrityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.IntegrityEvent(nil), m.events...)
}

func (m *Monitor) Terminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

func (m *Monitor) handleVisibility(hidden bool) {
	defer m.recoverPanic("visibility")
	if hidden {
		m.record(models.IntegrityTabHidden, MessageTabHidden)
	}
}

func (m *Monitor) handleFullscreen(active bool) {
	defer m.recoverPanic("fullscreen")
	if !active {
		m.record(models.IntegrityFullscreenExit, MessageFullscreenExit)
	}
}

// handleBeforeUnload asks for confirmation while the session is live.
// Closing is not a violation by itself.
func (m *Monitor) handleBeforeUnload() (confirm bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Integrity handler panicked", map[string]interface{}{
				"handler": "before_unload",
				"panic":   fmt.Sprint(r),
			})
			confirm = true
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted && !m.terminated
}

func (m *Monitor) record(kind models.IntegrityEventKind, message string) {
	hooks, ok := m.active()
	if !ok {
		return
	}
	event := m.newEvent(kind, hooks)

	m.mu.Lock()
	if !m.mounted || m.terminated {
		m.mu.Unlock()
		return
	}
	m.events = append(m.events, event)
	m.warnings++
	count := m.warnings
	m.mu.Unlock()

	m.publish(event, hooks)
	m.notifier.Warn(message)
	m.applyPolicy(count, hooks)
}

func (m *Monitor) applyPolicy(count int, hooks Hooks) {
	if count < m.config.Threshold {
		return
	}
	switch m.config.Policy {
	case config.PolicyFlag:
		m.flag(count, hooks)
	case config.PolicyFail:
		m.terminate(ReasonThreshold, MessageThreshold, "")
	}
}

func (m *Monitor) flag(count int, hooks Hooks) {
	m.mu.Lock()
	if m.flagged {
		m.mu.Unlock()
		return
	}
	m.flagged = true
	ctx := m.ctx
	events := append([]models.IntegrityEvent(nil), m.events...)
	m.mu.Unlock()

	flag := models.ReviewFlag{
		Reason:   fmt.Sprintf("%d integrity events", count),
		Events:   events,
		RaisedAt: m.clock.Now().UTC(),
	}
	if hooks.Session != nil {
		flag.SessionID, flag.JobID, _ = hooks.Session()
	}

	flagCtx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()
	if err := m.flagger.Flag(flagCtx, flag); err != nil {
		m.logger.Error("Failed to raise review flag", map[string]interface{}{
			"sessionId": flag.SessionID,
			"error":     err.Error(),
		})
		m.mu.Lock()
		m.flagged = false
		m.mu.Unlock()
	}
}

// terminate revokes the session once per mount. kind, when set, is
// recorded as the event that caused it.
func (m *Monitor) terminate(reason, message string, kind models.IntegrityEventKind) {
	hooks, ok := m.active()
	if !ok {
		return
	}

	m.mu.Lock()
	if !m.mounted || m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	ctx := m.ctx
	m.mu.Unlock()

	if kind != "" {
		event := m.newEvent(kind, hooks)
		m.mu.Lock()
		m.events = append(m.events, event)
		m.mu.Unlock()
		m.publish(event, hooks)
	}

	if err := m.credentials.ClearSessionCredential(ctx); err != nil {
		m.logger.Error("Failed to revoke session credential", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
	}
	m.logger.Warn("Session terminated", map[string]interface{}{
		"reason": reason,
	})

	timer := m.clock.AfterFunc(m.config.RedirectDelay, m.redirectToEntry)
	m.mu.Lock()
	if m.mounted {
		m.redirect = timer
	} else {
		timer.Stop()
	}
	m.mu.Unlock()

	m.safely("notify", func() { m.notifier.Terminal(message) })
	if hooks.OnTerminate != nil {
		m.safely("on_terminate", func() { hooks.OnTerminate(reason) })
	}
}

func (m *Monitor) redirectToEntry() {
	defer m.recoverPanic("redirect")

	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.redirect = nil
	m.mu.Unlock()

	m.logger.Info("Redirecting to entry point", map[string]interface{}{
		"url": m.config.EntryURL,
	})
	m.env.Navigate(m.config.EntryURL)
}

func (m *Monitor) active() (Hooks, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hooks, m.mounted && !m.terminated
}

func (m *Monitor) newEvent(kind models.IntegrityEventKind, hooks Hooks) models.IntegrityEvent {
	event := models.IntegrityEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		OccurredAt: m.clock.Now().UTC(),
	}
	if hooks.Session != nil {
		_, _, event.Stage = hooks.Session()
	}
	return event
}

func (m *Monitor) publish(event models.IntegrityEvent, hooks Hooks) {
	metrics.IntegrityEvents.WithLabelValues(string(event.Kind)).Inc()
	m.logger.Warn("Integrity event", map[string]interface{}{
		"kind":  string(event.Kind),
		"stage": event.Stage.String(),
	})
	if hooks.OnEvent != nil {
		m.safely("on_event", func() { hooks.OnEvent(event) })
	}
}

func (m *Monitor) navigationType() (nav NavigationType) {
	defer func() {
		if r := recover(); r != nil {
			nav = NavigationNavigate
		}
	}()
	return m.env.NavigationType()
}

func (m *Monitor) safely(name string, fn func()) {
	defer m.recoverPanic(name)
	fn()
}

func (m *Monitor) recoverPanic(handler string) {
	if r := recover(); r != nil {
		m.logger.Error("Integrity handler panicked", map[string]interface{}{
			"handler": handler,
			"panic":   fmt.Sprint(r),
		})
	}
}
