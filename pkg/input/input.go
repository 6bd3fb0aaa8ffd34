// Package input holds the change tracked signals the controller works on.
package input

// Clock is the controller time. It only moves forward, one tick interval at a time.
type Clock struct {
	seconds uint64
}

func (c *Clock) Advance(dt uint64) {
	c.seconds += dt
}

// Now returns the controller time in seconds since start.
func (c *Clock) Now() uint64 {
	return c.seconds
}

// Tracked wraps one external signal and remembers when it last changed.
// Change detection is against the value at the last Unflag and uses exact equality.
type Tracked[T comparable] struct {
	name    string
	clock   *Clock
	value   T
	prev    T
	changed uint64
}

func New[T comparable](name string, clock *Clock) *Tracked[T] {
	return &Tracked[T]{
		name:  name,
		clock: clock,
	}
}

// Receive stores a new value. The change time is only moved when the value
// differs from the one seen at the last Unflag.
func (t *Tracked[T]) Receive(v T) {
	t.value = v
	if v != t.prev {
		t.changed = t.clock.Now()
	}
}

func (t *Tracked[T]) Value() T {
	return t.value
}

func (t *Tracked[T]) Name() string {
	return t.name
}

// HasChanged reports if the value differs from the value at the last Unflag.
func (t *Tracked[T]) HasChanged() bool {
	return t.value != t.prev
}

// Unflag makes the current value the new baseline for HasChanged.
func (t *Tracked[T]) Unflag() {
	t.prev = t.value
}

func (t *Tracked[T]) SecondsSinceChange() uint64 {
	return t.clock.Now() - t.changed
}

// Unflagger is implemented by every Tracked signal.
type Unflagger interface {
	Unflag()
}
