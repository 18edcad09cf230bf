package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"candidate-interview/internal/integrity"
)

// terminalEnvironment hosts the integrity monitor in a terminal. A run
// that starts while the previous run's mount marker still exists counts
// as a reload. The first interrupt is a close attempt, the second leaves.
type terminalEnvironment struct {
	marker string
	nav    integrity.NavigationType
	out    io.Writer
	leave  func()

	mu      sync.Mutex
	nextID  int
	unload  map[int]func() bool
	warned  bool
	stopped chan struct{}
	once    sync.Once
}

func newTerminalEnvironment(marker string, out io.Writer, interrupts <-chan os.Signal, leave func()) (*terminalEnvironment, error) {
	nav := integrity.NavigationNavigate
	if _, err := os.Stat(marker); err == nil {
		nav = integrity.NavigationReload
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("check mount marker: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(marker), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	stamp := strconv.Itoa(os.Getpid()) + " " + time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(marker, []byte(stamp), 0o600); err != nil {
		return nil, fmt.Errorf("write mount marker: %w", err)
	}

	env := &terminalEnvironment{
		marker:  marker,
		nav:     nav,
		out:     out,
		leave:   leave,
		unload:  make(map[int]func() bool),
		stopped: make(chan struct{}),
	}
	go env.watch(interrupts)
	return env, nil
}

func (e *terminalEnvironment) watch(interrupts <-chan os.Signal) {
	for {
		select {
		case <-e.stopped:
			return
		case _, ok := <-interrupts:
			if !ok {
				return
			}
			e.interrupt()
		}
	}
}

func (e *terminalEnvironment) interrupt() {
	e.mu.Lock()
	handlers := make([]func() bool, 0, len(e.unload))
	for _, h := range e.unload {
		handlers = append(handlers, h)
	}
	warned := e.warned
	e.mu.Unlock()

	confirm := false
	for _, h := range handlers {
		if h() {
			confirm = true
		}
	}
	if confirm && !warned {
		e.mu.Lock()
		e.warned = true
		e.mu.Unlock()
		fmt.Fprintln(e.out, "Your interview is in progress. Press Ctrl+C again to leave.")
		return
	}
	e.leave()
}

func (e *terminalEnvironment) NavigationType() integrity.NavigationType {
	return e.nav
}

// A terminal cannot report focus changes.
func (e *terminalEnvironment) OnVisibilityChange(func(bool)) func() {
	return func() {}
}

func (e *terminalEnvironment) OnBeforeUnload(handler func() bool) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.unload[id] = handler
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.unload, id)
	}
}

func (e *terminalEnvironment) OnFullscreenChange(func(bool)) func() {
	return func() {}
}

func (e *terminalEnvironment) FullscreenMethods() []integrity.FullscreenMethod {
	return nil
}

func (e *terminalEnvironment) Navigate(url string) {
	fmt.Fprintf(e.out, "Redirecting to %s\n", url)
	e.leave()
}

// Close stops watching interrupts and removes the mount marker so the next
// run is a fresh navigation.
func (e *terminalEnvironment) Close() error {
	e.once.Do(func() { close(e.stopped) })
	if err := os.Remove(e.marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove mount marker: %w", err)
	}
	return nil
}

// markerPath names the marker for one interview link.
func markerPath(stateDir string, jobID int64) string {
	return filepath.Join(stateDir, fmt.Sprintf("job-%d.mounted", jobID))
}
