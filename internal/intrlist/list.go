// Package intrlist implements the sentinel-based doubly-linked list used
// by the task allocator and the library manager for their bookkeeping
// lists. It keeps the original's head/tail-bracket-a-null-field trick in
// spirit but expresses it as a single sentinel element, the way Go's own
// container/list does, rather than replicating the C implementation's
// pointer-arithmetic-dependent layout (see DESIGN.md).
package intrlist

// State reports whether a List is usable and, if so, whether it holds
// any elements.
type State int

const (
	// StateEmpty means the list is initialized and holds no elements.
	StateEmpty State = iota
	// StateNonEmpty means the list is initialized and holds at least
	// one element.
	StateNonEmpty
	// StateCorrupt means the list has not been initialized, or its
	// sentinel invariants have been violated.
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateNonEmpty:
		return "non-empty"
	default:
		return "corrupt"
	}
}

// Element is one node of a List. Priority is only consulted by
// PriorityInsert; ordinary insertion ignores it.
type Element struct {
	next, prev *Element
	list       *List

	// Value is the caller's payload. Library and allocation bookkeeping
	// nodes carry a pointer to their own struct here.
	Value any

	// Priority orders nodes inserted via PriorityInsert; unused by
	// every other mutator.
	Priority int16
}

// Next returns the next element in the list, or nil if e is the last
// element or is not currently linked into a list.
func (e *Element) Next() *Element {
	if p := e.next; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// Prev returns the previous element in the list, or nil if e is the
// first element or is not currently linked into a list.
func (e *Element) Prev() *Element {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// List is a sentinel-based doubly-linked list. The zero value reports
// StateCorrupt until Init is called, mirroring the source's distinction
// between an uninitialized list header and an empty one.
type List struct {
	root Element // root.next and root.prev are never nil once initialized
	len  int
}

// New returns an initialized, empty list.
func New() *List { return new(List).Init() }

// Init (re-)initializes the list as empty. Existing elements are
// unlinked from it but not otherwise modified, matching the source's
// documented behavior that ListInitialize does not deallocate nodes.
func (l *List) Init() *List {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.root.list = l
	l.len = 0
	return l
}

func (l *List) lazyInit() {
	if l.root.next == nil {
		l.Init()
	}
}

// State reports the list's current condition.
func (l *List) State() State {
	if l.root.next == nil || l.root.prev == nil {
		return StateCorrupt
	}
	if l.len == 0 {
		if l.root.next == &l.root && l.root.prev == &l.root {
			return StateEmpty
		}
		return StateCorrupt
	}
	if l.root.next == &l.root || l.root.prev == &l.root {
		return StateCorrupt
	}
	return StateNonEmpty
}

// Len returns the number of elements in the list.
func (l *List) Len() int { return l.len }

// Front returns the first element, or nil if the list is empty.
func (l *List) Front() *Element {
	if l.len == 0 {
		return nil
	}
	return l.root.next
}

// Back returns the last element, or nil if the list is empty.
func (l *List) Back() *Element {
	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

// insert places e immediately after at and returns e.
func (l *List) insert(e, at *Element) *Element {
	n := at.next
	at.next = e
	e.prev = at
	e.next = n
	n.prev = e
	e.list = l
	l.len++
	return e
}

// InsertAfter inserts a new element carrying value immediately after
// mark, which must currently belong to l.
func (l *List) InsertAfter(value any, mark *Element) *Element {
	return l.insert(&Element{Value: value}, mark)
}

// PushFront inserts a new element carrying value at the head of l.
func (l *List) PushFront(value any) *Element {
	l.lazyInit()
	return l.insert(&Element{Value: value}, &l.root)
}

// PushBack inserts a new element carrying value at the tail of l.
func (l *List) PushBack(value any) *Element {
	l.lazyInit()
	return l.insert(&Element{Value: value}, l.root.prev)
}

// Remove unlinks e from l and clears its link fields, as the source's
// NodeRemove does. It returns e's Value.
func (l *List) Remove(e *Element) any {
	if e.list != l {
		return nil
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	e.list = nil
	l.len--
	return e.Value
}

// PopFront removes and returns the head element's value, or nil if l is
// empty.
func (l *List) PopFront() any {
	e := l.Front()
	if e == nil {
		return nil
	}
	return l.Remove(e)
}

// PopBack removes and returns the tail element's value, or nil if l is
// empty.
func (l *List) PopBack() any {
	e := l.Back()
	if e == nil {
		return nil
	}
	return l.Remove(e)
}

// PriorityInsert inserts a new element carrying value after the last
// element whose Priority is >= priority, yielding a stable
// priority-ordered FIFO among equal priorities. O(n).
func (l *List) PriorityInsert(value any, priority int16) *Element {
	l.lazyInit()
	at := &l.root
	for e := l.root.next; e != &l.root; e = e.next {
		if e.Priority < priority {
			break
		}
		at = e
	}
	e := &Element{Value: value, Priority: priority}
	return l.insert(e, at)
}

// Each calls fn for every element in l from head to tail. fn must not
// mutate l.
func (l *List) Each(fn func(*Element)) {
	for e := l.root.next; e != &l.root; e = e.next {
		fn(e)
	}
}
