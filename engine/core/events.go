package core

import "sync"

type EventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Data: *MouseEvent
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Data: *MouseEvent
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Data: *MouseEvent
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Data: *MouseEvent
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Framebuffer size changed. Data: *ResizeEvent
	EVENT_CODE_RESIZED EventCode = 0x08
	// A watched asset changed on disk. Data: *AssetEvent
	EVENT_CODE_ASSET_CHANGED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type AssetEvent struct {
	Path string
}

// Should return true if handled.
type FnOnEvent func(ctx EventContext, listener interface{}) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.Mutex
	registered map[EventCode][]registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState

func events() *eventSystemState {
	onceEvent.Do(func() {
		eventState = &eventSystemState{registered: make(map[EventCode][]registeredEvent)}
	})
	return eventState
}

func EventShutdown() {
	s := events()
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.registered)
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * can be registered only once per code; duplicates return false.
 */
func EventRegister(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	s := events()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	s.registered[code] = append(s.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// EventUnregister returns false when no matching registration exists.
func EventUnregister(code EventCode, listener interface{}) bool {
	s := events()
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.registered[code]
	for i, e := range list {
		if e.listener == listener {
			s.registered[code] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func EventFire(ctx EventContext) bool {
	s := events()
	s.mu.Lock()
	list := append([]registeredEvent(nil), s.registered[ctx.Type]...)
	s.mu.Unlock()
	for _, e := range list {
		if e.callback(ctx, e.listener) {
			return true
		}
	}
	return false
}
