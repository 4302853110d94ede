package anyplay

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/unixpickle/anygym"
)

// EventType is the kind of an input Event.
type EventType int

const (
	KeyDown EventType = iota
	KeyUp
	Quit
)

// KeyEscape is the key code of the Escape key, which ends
// a game.
const KeyEscape = 27

// An Event is a keyboard or window event from the user.
type Event struct {
	Type EventType

	// Key is the key code for KeyDown and KeyUp events.
	// Printable keys use their character code.
	Key int
}

// ErrQueueFull is returned when posting to a full
// EventQueue.
var ErrQueueFull = errors.New("event queue is full")

// An EventQueue passes events from an input source (such
// as a window or a test) to a running game.
type EventQueue struct {
	events chan Event
}

// NewEventQueue creates a queue which can hold up to
// capacity pending events.
func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{events: make(chan Event, capacity)}
}

// Post adds an event to the queue without blocking.
func (e *EventQueue) Post(event Event) error {
	select {
	case e.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Poll removes and returns every pending event.
func (e *EventQueue) Poll() []Event {
	var res []Event
	for {
		select {
		case event := <-e.events:
			res = append(res, event)
		default:
			return res
		}
	}
}

// Combo creates a KeyMap key for a combination of keys.
//
// The order of the keys does not matter.
func Combo(keys ...int) string {
	sorted := append([]int{}, keys...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, k := range sorted {
		parts[i] = strconv.Itoa(k)
	}
	return strings.Join(parts, "+")
}

// StringKeyMap creates a KeyMap from a map whose keys are
// strings of characters to press at once.
//
// For example, "wd" maps to Combo('w', 'd').
func StringKeyMap(m map[string]interface{}) anygym.KeyMap {
	res := anygym.KeyMap{}
	for chars, action := range m {
		var keys []int
		for _, ch := range chars {
			keys = append(keys, int(ch))
		}
		res[Combo(keys...)] = action
	}
	return res
}

func parseCombo(combo string) ([]int, error) {
	if combo == "" {
		return nil, nil
	}
	var res []int
	for _, part := range strings.Split(combo, "+") {
		k, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.New("invalid key combination: " + combo)
		}
		res = append(res, k)
	}
	return res, nil
}
