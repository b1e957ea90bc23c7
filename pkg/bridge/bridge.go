// Package bridge forwards committee events to an embedding host application.
package bridge

import "sync"

type NotifyFunc func(topic string, payload string)

const (
	TopicRunStarted     = "committee.started"
	TopicRunFinished    = "committee.finished"
	TopicRunFailed      = "committee.error"
	TopicEngineReloaded = "engine.reloaded"
	TopicEngineFailed   = "engine.reload_failed"
)

var (
	mu   sync.RWMutex
	impl NotifyFunc
)

// SetNotifyImpl is called by the host shim, e.g. the cgo exports in cmd/libcortex.
func SetNotifyImpl(f NotifyFunc) {
	mu.Lock()
	impl = f
	mu.Unlock()
}

// Notify delivers an event to the host. Without a host it is a no-op.
func Notify(topic string, payload string) {
	mu.RLock()
	f := impl
	mu.RUnlock()
	if f != nil {
		f(topic, payload)
	}
}
