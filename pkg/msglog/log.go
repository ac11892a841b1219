// Package msglog implements the panel's bounded message log: a newest-first
// list of entries that never holds more than its capacity. New entries are
// inserted at the head; when the log overflows, entries are evicted from the tail.
package msglog

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// DefaultCapacity is used when no capacity has been configured.
const DefaultCapacity = 100

var ErrInvalidCapacity = errors.New("invalid message log capacity")

// Log is safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry // newest first
	capacity int
	onAppend []func(Entry)
	now      func() time.Time
}

// New creates a log holding at most capacity entries.
func New(capacity int) (*Log, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Log{
		entries:  make([]Entry, 0, min(capacity, DefaultCapacity)),
		capacity: capacity,
		now:      time.Now,
	}, nil
}

// OnAppend registers a callback invoked after every accepted append,
// outside the log's lock.
func (l *Log) OnAppend(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAppend = append(l.onAppend, fn)
}

// Append inserts e at the head of the log. An entry whose ID is already
// present is a duplicate and is dropped; the returned bool reports whether
// e was accepted. With capacity 0 an accepted entry is evicted immediately.
func (l *Log) Append(e Entry) (Entry, bool) {
	e.ID = Checksum(e.Timestamp, e.Level, e.Message)

	l.mu.Lock()
	if l.indexOf(e.ID) >= 0 {
		l.mu.Unlock()
		return e, false
	}
	l.entries = slices.Insert(l.entries, 0, e)
	l.evict()
	callbacks := slices.Clone(l.onAppend)
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn(e)
	}
	return e, true
}

// Post is a shorthand for appending a message stamped with the current time.
// It reports false when an identical entry was already in the log.
func (l *Log) Post(level Level, msg string) (Entry, bool) {
	return l.Append(NewEntry(l.now(), level, msg))
}

// Postf formats the message like fmt.Sprintf before posting it.
func (l *Log) Postf(level Level, format string, args ...any) (Entry, bool) {
	return l.Post(level, fmt.Sprintf(format, args...))
}

// Remove deletes the entry with the given ID. Unknown IDs are ignored.
func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return false
	}
	l.entries = slices.Delete(l.entries, idx, idx+1)
	return true
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.entries)
	l.entries = l.entries[:0]
}

// SetCapacity changes the capacity, evicting from the tail right away
// if the log currently holds more than n entries.
func (l *Log) SetCapacity(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, n)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = n
	l.evict()
	return nil
}

func (l *Log) Capacity() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capacity
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Visible reports whether the log has anything to show.
func (l *Log) Visible() bool {
	return l.Len() > 0
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Rows returns the rendered log, newest first.
func (l *Log) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows := make([]Row, len(l.entries))
	for i, e := range l.entries {
		rows[i] = Render(e)
	}
	return rows
}

// Get looks up an entry by ID.
func (l *Log) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.indexOf(id); idx >= 0 {
		return l.entries[idx], true
	}
	return Entry{}, false
}

// caller holds l.mu
func (l *Log) evict() {
	if len(l.entries) <= l.capacity {
		return
	}
	clear(l.entries[l.capacity:])
	l.entries = l.entries[:l.capacity]
}

// caller holds l.mu
func (l *Log) indexOf(id string) int {
	return slices.IndexFunc(l.entries, func(e Entry) bool { return e.ID == id })
}
