package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/logger"
)

// OnStatus registers fn for status changes. The returned func removes it.
func (m *Manager) OnStatus(fn func(Status)) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	m.nextListener++
	id := m.nextListener
	m.statusListeners[id] = fn
	return func() {
		m.lmu.Lock()
		delete(m.statusListeners, id)
		m.lmu.Unlock()
	}
}

// OnEvent registers fn for change events from every subscribed resource.
// The returned func removes it.
func (m *Manager) OnEvent(fn func(events.Event)) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	m.nextListener++
	id := m.nextListener
	m.eventListeners[id] = fn
	return func() {
		m.lmu.Lock()
		delete(m.eventListeners, id)
		m.lmu.Unlock()
	}
}

func (m *Manager) emitStatus(s Status) {
	m.lmu.RLock()
	fns := make([]func(Status), 0, len(m.statusListeners))
	for _, fn := range m.statusListeners {
		fns = append(fns, fn)
	}
	m.lmu.RUnlock()

	for _, fn := range fns {
		m.safeCall("status", func() { fn(s) })
	}
}

func (m *Manager) emitEvent(ev events.Event) {
	m.lmu.RLock()
	fns := make([]func(events.Event), 0, len(m.eventListeners))
	for _, fn := range m.eventListeners {
		fns = append(fns, fn)
	}
	m.lmu.RUnlock()

	for _, fn := range fns {
		m.safeCall("event", func() { fn(ev) })
	}
}

func (m *Manager) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.LogAttrs(context.Background(), slog.LevelError, "realtime listener panicked",
				slog.String("listener", kind),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	fn()
}
