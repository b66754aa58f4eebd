// Package notify delivers configuration changes to subscribers.
//
// A reload is turned into one Change per setting that differs between the
// old and new settings (see Diff), followed by a single ChangeReload.
// Observers run synchronously on the goroutine that calls Notify.
package notify

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a value was added or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value is no longer present.
	ChangeDelete

	// ChangeReload follows the per-setting changes of one reload.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change describes one configuration change.
type Change struct {
	// Path is the dotted setting path, e.g. "window.title". Empty for
	// reload events.
	Path string
	Type ChangeType

	OldValue any
	NewValue any
}

// Observer is called for each matching change.
type Observer func(change Change)

// Subscription is an active observer registration.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes the observer. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	path     string
	observer Observer
}

// Notifier fans changes out to observers.
type Notifier struct {
	mu        sync.RWMutex
	observers map[uint64]entry
	nextID    uint64

	// OnPanic, if set, receives values recovered from observers.
	OnPanic func(change Change, recovered any)
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{observers: make(map[uint64]entry)}
}

// Subscribe registers an observer for every change.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for path and everything below it:
// "window" receives "window.title". Reload events reach every observer.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = entry{path: path, observer: observer}
	return &Subscription{id: id, notifier: n}
}

// Len returns the number of subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Notify delivers change to every matching observer. A panicking observer
// does not stop delivery to the others.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	var ids []uint64
	for id, e := range n.observers {
		if change.Type == ChangeReload || matches(e.path, change.Path) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]Observer, len(ids))
	for i, id := range ids {
		observers[i] = n.observers[id].observer
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		n.deliver(obs, change)
	}
}

// NotifyAll delivers changes in order, then a ChangeReload. Nothing is
// sent when changes is empty.
func (n *Notifier) NotifyAll(changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, c := range changes {
		n.Notify(c)
	}
	n.Notify(Change{Type: ChangeReload})
}

func (n *Notifier) deliver(obs Observer, change Change) {
	defer func() {
		if r := recover(); r != nil && n.OnPanic != nil {
			n.OnPanic(change, r)
		}
	}()
	obs(change)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	delete(n.observers, id)
	n.mu.Unlock()
}

// matches reports whether a subscription to prefix covers path.
func matches(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	return strings.HasPrefix(path, prefix) && path[len(prefix)] == '.'
}

// Diff compares two nested settings maps and returns the changed leaf
// settings sorted by path.
func Diff(old, updated map[string]any) []Change {
	var changes []Change
	diff("", old, updated, &changes)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func diff(prefix string, old, updated map[string]any, out *[]Change) {
	for key, nv := range updated {
		path := join(prefix, key)
		ov, ok := old[key]
		nm, nIsMap := nv.(map[string]any)
		om, oIsMap := ov.(map[string]any)

		switch {
		case nIsMap && oIsMap:
			diff(path, om, nm, out)
		case nIsMap:
			if ok {
				*out = append(*out, Change{Path: path, Type: ChangeDelete, OldValue: ov})
			}
			diff(path, nil, nm, out)
		case !ok:
			*out = append(*out, Change{Path: path, Type: ChangeSet, NewValue: nv})
		case oIsMap:
			diff(path, om, nil, out)
			*out = append(*out, Change{Path: path, Type: ChangeSet, NewValue: nv})
		case !equal(ov, nv):
			*out = append(*out, Change{Path: path, Type: ChangeSet, OldValue: ov, NewValue: nv})
		}
	}
	for key, ov := range old {
		if _, ok := updated[key]; ok {
			continue
		}
		path := join(prefix, key)
		if om, isMap := ov.(map[string]any); isMap {
			diff(path, om, nil, out)
			continue
		}
		*out = append(*out, Change{Path: path, Type: ChangeDelete, OldValue: ov})
	}
}

// equal treats values from different sources alike when they print the
// same, so int64(3) from TOML equals int 3 from YAML.
func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
