package store

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotFound is returned for operations on an unknown item.
var ErrNotFound = errors.New("store: item not found")

// EventKind enumerates store change notifications.
type EventKind int

const (
	EventAdded EventKind = iota
	EventReplaced
	EventRemoved
	EventHidden
	EventUnhidden
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventReplaced:
		return "replaced"
	case EventRemoved:
		return "removed"
	case EventHidden:
		return "hidden"
	case EventUnhidden:
		return "unhidden"
	default:
		return "unknown"
	}
}

// Event describes one change to the store.
type Event struct {
	Kind     EventKind
	Item     ItemID
	ItemKind Kind
	Origin   Origin
}

// Store is the document item store. It is safe for concurrent use.
// Subscribers are notified after the change is visible, on the goroutine
// that made it.
type Store struct {
	mu     sync.RWMutex
	items  map[ItemID]*Item
	names  map[string]ItemID
	nextID ItemID

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	queue *Queue
}

// New creates an empty Store with its own queue.
func New() *Store {
	return &Store{
		items:  make(map[ItemID]*Item),
		names:  make(map[string]ItemID),
		nextID: 1,
		subs:   make(map[int]func(Event)),
		queue:  NewQueue(),
	}
}

// Queue returns the single-writer queue shared by everything that mutates
// the curve network.
func (s *Store) Queue() *Queue {
	return s.queue
}

// Add stores data as a new visible item and returns its ID.
func (s *Store) Add(data ItemData, origin Origin) ItemID {
	var id ItemID
	s.Batch(func(tx *Tx) error {
		id = tx.Add(data, origin)
		return nil
	})
	return id
}

// Replace swaps the payload of an existing item. The kind may not change.
func (s *Store) Replace(id ItemID, data ItemData, origin Origin) error {
	return s.Batch(func(tx *Tx) error {
		return tx.Replace(id, data, origin)
	})
}

// Remove deletes an item.
func (s *Store) Remove(id ItemID, origin Origin) error {
	return s.Batch(func(tx *Tx) error {
		return tx.Remove(id, origin)
	})
}

// Hide marks an item hidden. Hiding a hidden item is a no-op.
func (s *Store) Hide(id ItemID) error {
	return s.setHidden(id, true)
}

// Unhide clears the hidden mark. Unhiding a visible item is a no-op.
func (s *Store) Unhide(id ItemID) error {
	return s.setHidden(id, false)
}

func (s *Store) setHidden(id ItemID, hidden bool) error {
	return s.Batch(func(tx *Tx) error {
		it, ok := tx.s.items[id]
		if !ok {
			return fmt.Errorf("hide %s: %w", id, ErrNotFound)
		}
		if it.Hidden == hidden {
			return nil
		}
		it.Hidden = hidden
		kind := EventUnhidden
		if hidden {
			kind = EventHidden
		}
		tx.events = append(tx.events, Event{Kind: kind, Item: id, ItemKind: it.Kind, Origin: User})
		return nil
	})
}

// SetName attaches a user-visible name to an item. An empty name clears it.
func (s *Store) SetName(id ItemID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("name %s: %w", id, ErrNotFound)
	}
	if it.Name != "" {
		delete(s.names, it.Name)
	}
	it.Name = name
	if name != "" {
		s.names[name] = id
	}
	return nil
}

// Get returns a copy of the item with the given ID.
func (s *Store) Get(id ItemID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Lookup returns the item with the given user-assigned name.
func (s *Store) Lookup(name string) (Item, bool) {
	s.mu.RLock()
	id, ok := s.names[name]
	s.mu.RUnlock()
	if !ok {
		return Item{}, false
	}
	return s.Get(id)
}

// Find returns every item of the given kind, hidden or not, ordered by ID.
func (s *Store) Find(kind Kind) []Item {
	return s.collect(func(it *Item) bool { return it.Kind == kind })
}

// Visible returns every non-hidden item of the given kind, ordered by ID.
func (s *Store) Visible(kind Kind) []Item {
	return s.collect(func(it *Item) bool { return it.Kind == kind && !it.Hidden })
}

// Count returns the number of items of the given kind.
func (s *Store) Count(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the total number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) collect(keep func(*Item) bool) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.items, keep)
}

func collect(items map[ItemID]*Item, keep func(*Item) bool) []Item {
	var out []Item
	for _, it := range items {
		if keep(it) {
			out = append(out, *it)
		}
	}
	slices.SortFunc(out, func(a, b Item) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Subscribe registers fn for change notifications and returns a function
// that cancels the subscription.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	s.subMu.Unlock()

	for _, e := range events {
		for _, fn := range fns {
			fn(e)
		}
	}
}

// Tx is the write view handed to Batch.
type Tx struct {
	s      *Store
	events []Event
}

// Batch runs fn with the store locked, so readers see either none or all
// of its changes. Events are delivered after the lock is released. Changes
// made before fn returns an error are kept.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	tx := &Tx{s: s}
	s.mu.Lock()
	err := fn(tx)
	s.mu.Unlock()
	s.publish(tx.events)
	return err
}

// Add stores data as a new visible item.
func (tx *Tx) Add(data ItemData, origin Origin) ItemID {
	s := tx.s
	id := s.nextID
	s.nextID++
	s.items[id] = &Item{ID: id, Kind: data.Kind(), Data: data}
	tx.events = append(tx.events, Event{Kind: EventAdded, Item: id, ItemKind: data.Kind(), Origin: origin})
	return id
}

// Replace swaps the payload of an existing item.
func (tx *Tx) Replace(id ItemID, data ItemData, origin Origin) error {
	it, ok := tx.s.items[id]
	if !ok {
		return fmt.Errorf("replace %s: %w", id, ErrNotFound)
	}
	if it.Kind != data.Kind() {
		return fmt.Errorf("replace %s: cannot change kind %s to %s", id, it.Kind, data.Kind())
	}
	it.Data = data
	tx.events = append(tx.events, Event{Kind: EventReplaced, Item: id, ItemKind: it.Kind, Origin: origin})
	return nil
}

// Remove deletes an item.
func (tx *Tx) Remove(id ItemID, origin Origin) error {
	it, ok := tx.s.items[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(tx.s.items, id)
	if it.Name != "" {
		delete(tx.s.names, it.Name)
	}
	tx.events = append(tx.events, Event{Kind: EventRemoved, Item: id, ItemKind: it.Kind, Origin: origin})
	return nil
}

// Find returns every item of the given kind, ordered by ID.
func (tx *Tx) Find(kind Kind) []Item {
	return collect(tx.s.items, func(it *Item) bool { return it.Kind == kind })
}
