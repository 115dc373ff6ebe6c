package pattern

import "fmt"

// Arrangement is an ordered, editable timeline of pattern instances. Every
// entry is an independent copy with its own identity.
type Arrangement struct {
	items []Pattern
}

// NewArrangement copies patterns into a new timeline, giving each a fresh ID.
func NewArrangement(patterns ...Pattern) *Arrangement {
	a := &Arrangement{}
	for _, p := range patterns {
		a.Add(p)
	}
	return a
}

func (a *Arrangement) Len() int { return len(a.items) }

// Add appends a copy of p.
func (a *Arrangement) Add(p Pattern) Pattern {
	p.ID = NextID()
	a.items = append(a.items, p)
	return p
}

// Insert places a copy of p at index i (0..Len).
func (a *Arrangement) Insert(i int, p Pattern) (Pattern, error) {
	if i < 0 || i > len(a.items) {
		return Pattern{}, fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	p.ID = NextID()
	a.items = append(a.items, Pattern{})
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = p
	return p, nil
}

// At returns a copy of the entry at i.
func (a *Arrangement) At(i int) (Pattern, bool) {
	if i < 0 || i >= len(a.items) {
		return Pattern{}, false
	}
	return a.items[i], true
}

// Move shifts the entry at from by dir positions. A move that would leave
// the timeline is ignored and reported as false.
func (a *Arrangement) Move(from, dir int) bool {
	return a.MoveTo(from, from+dir) == nil
}

// MoveTo relocates the entry at from so it ends up at index to.
func (a *Arrangement) MoveTo(from, to int) error {
	if from < 0 || from >= len(a.items) {
		return fmt.Errorf("%w: %d", ErrIndexRange, from)
	}
	if to < 0 || to >= len(a.items) {
		return fmt.Errorf("%w: %d", ErrIndexRange, to)
	}
	if from == to {
		return nil
	}
	p := a.items[from]
	a.items = append(a.items[:from], a.items[from+1:]...)
	a.items = append(a.items, Pattern{})
	copy(a.items[to+1:], a.items[to:])
	a.items[to] = p
	return nil
}

// Copy duplicates the entry at i directly after itself.
func (a *Arrangement) Copy(i int) (Pattern, error) {
	p, ok := a.At(i)
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	p.Name += "_copy"
	return a.Insert(i+1, p)
}

// Delete removes the entry at i.
func (a *Arrangement) Delete(i int) error {
	if i < 0 || i >= len(a.items) {
		return fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	a.items = append(a.items[:i], a.items[i+1:]...)
	return nil
}

// Patterns returns a copy of the timeline.
func (a *Arrangement) Patterns() []Pattern {
	out := make([]Pattern, len(a.items))
	copy(out, a.items)
	return out
}
