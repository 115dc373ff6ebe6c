package pattern

import (
	"fmt"
	"strconv"
)

// BankSize is the number of slots in a bank.
const BankSize = 8

// Bank is a fixed array of optional pattern slots. The slot index is the
// pattern's address: deleting leaves a hole and never compacts.
type Bank struct {
	slots [BankSize]*Pattern
}

// Save stores a snapshot of p in slot, overwriting any previous occupant.
// The stored copy gets a fresh identity and is named after its slot.
func (b *Bank) Save(slot int, p Pattern) (Pattern, error) {
	if slot < 0 || slot >= BankSize {
		return Pattern{}, fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	snap := p
	snap.ID = NextID()
	snap.Slot = slot + 1
	snap.Name = strconv.Itoa(slot + 1)
	b.slots[slot] = &snap
	return snap, nil
}

// Append saves p into the first empty slot.
func (b *Bank) Append(p Pattern) (Pattern, error) {
	for i, s := range b.slots {
		if s == nil {
			return b.Save(i, p)
		}
	}
	return Pattern{}, ErrBankFull
}

// Get returns a copy of the pattern in slot.
func (b *Bank) Get(slot int) (Pattern, bool) {
	if slot < 0 || slot >= BankSize || b.slots[slot] == nil {
		return Pattern{}, false
	}
	return *b.slots[slot], true
}

// Find returns the slot holding id.
func (b *Bank) Find(id uint64) (int, bool) {
	for i, s := range b.slots {
		if s != nil && s.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Delete empties slot. Other slots keep their indices.
func (b *Bank) Delete(slot int) error {
	if slot < 0 || slot >= BankSize {
		return fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	if b.slots[slot] == nil {
		return fmt.Errorf("%w: %d", ErrSlotEmpty, slot)
	}
	b.slots[slot] = nil
	return nil
}

// DeleteID empties the slot holding id.
func (b *Bank) DeleteID(id uint64) error {
	slot, ok := b.Find(id)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return b.Delete(slot)
}

// Count returns the number of occupied slots.
func (b *Bank) Count() int {
	n := 0
	for _, s := range b.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Slots returns copies of all slots; nil marks a hole.
func (b *Bank) Slots() [BankSize]*Pattern {
	var out [BankSize]*Pattern
	for i, s := range b.slots {
		if s != nil {
			cp := *s
			out[i] = &cp
		}
	}
	return out
}

// Rename changes the display name of the pattern in slot.
func (b *Bank) Rename(slot int, name string) error {
	if slot < 0 || slot >= BankSize {
		return fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	if b.slots[slot] == nil {
		return fmt.Errorf("%w: %d", ErrSlotEmpty, slot)
	}
	b.slots[slot].Name = name
	return nil
}
