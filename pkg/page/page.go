// Package page models the rendering target for notifications:
// a document made of sections, keyed by data-type, each holding a notification list.
package page

import (
	"fmt"
	"sync"
)

// ListClass is the class of the list receiving notifications in each section.
const ListClass = "notification-list"

// Selector gets the query locating the notification list of the section with the given data-type.
func Selector(dataType string) string {
	return fmt.Sprintf("[data-type=%q] .%s", dataType, ListClass)
}

// A Container receives rendered notifications.
type Container interface {
	Append(text string)
}

// A Querier locates containers.
type Querier interface {
	// QuerySelector returns the container matching selector, or nil if there is none.
	QuerySelector(selector string) Container
}

// Document holds the notification lists of a page.
type Document struct {
	lock  sync.RWMutex // Protects lists
	lists map[string]*List
}

// NewDocument creates a document with one section per data-type.
func NewDocument(dataTypes ...string) *Document {
	doc := &Document{lists: make(map[string]*List)}
	for _, dt := range dataTypes {
		doc.AddSection(dt)
	}
	return doc
}

// AddSection adds a section for dataType, returning its list.
// If the section already exists, its list is returned unchanged.
func (doc *Document) AddSection(dataType string) *List {
	doc.lock.Lock()
	defer doc.lock.Unlock()
	sel := Selector(dataType)
	if l, ok := doc.lists[sel]; ok {
		return l
	}
	l := &List{}
	doc.lists[sel] = l
	return l
}

// QuerySelector implements Querier.
func (doc *Document) QuerySelector(selector string) Container {
	if l := doc.List(selector); l != nil {
		return l
	}
	return nil
}

// List gets the list matching selector, or nil.
func (doc *Document) List(selector string) *List {
	doc.lock.RLock()
	defer doc.lock.RUnlock()
	return doc.lists[selector]
}

// List is an append-only list of rendered items.
// Items are kept in arrival order; nothing is ever evicted.
type List struct {
	lock      sync.Mutex // Protects items and observers
	items     []string
	observers []func(text string)
}

// Append adds an item to the list, and passes it to every observer.
func (l *List) Append(text string) {
	l.lock.Lock()
	l.items = append(l.items, text)
	observers := l.observers
	l.lock.Unlock()

	for _, o := range observers {
		o(text)
	}
}

// Observe registers f to be called with the text of each item appended after this call.
func (l *List) Observe(f func(text string)) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.observers = append(l.observers[:len(l.observers):len(l.observers)], f)
}

// Items returns a copy of the list's items.
func (l *List) Items() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.items...)
}

// Len gets the number of items in the list.
func (l *List) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.items)
}
