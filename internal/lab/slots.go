package lab

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/labmux/internal/config"
)

// Slot is one managed window and the process bound to it.
type Slot struct {
	Name     string
	Dir      string
	Argv     []string // first element is absolute
	Sentinel string   // readiness marker, anchor only
}

// SlotsFromConfig resolves the configured slots into launchable form.
func SlotsFromConfig(cfg *config.Config) []Slot {
	slots := make([]Slot, 0, len(cfg.Slots))
	for _, sc := range cfg.Slots {
		slots = append(slots, Slot{
			Name:     sc.Name,
			Dir:      cfg.SlotDir(sc),
			Argv:     cfg.ResolveCommand(sc.Command),
			Sentinel: sc.Sentinel,
		})
	}
	return slots
}

// SlotStatus is the outcome of reconciling one slot.
type SlotStatus int

const (
	SlotPresent SlotStatus = iota
	SlotCreated
)

func (s SlotStatus) String() string {
	if s == SlotCreated {
		return "created"
	}
	return "present"
}

// EnsureSlot creates the named window unless one with exactly that name
// already exists. The window list is fetched fresh on every call.
func EnsureSlot(ctx context.Context, mux Mux, session, name, dir string) (SlotStatus, error) {
	windows, err := mux.ListWindows(ctx, session)
	if err != nil {
		return SlotPresent, fmt.Errorf("listing windows of %s: %w", session, err)
	}
	for _, w := range windows {
		if w == name {
			return SlotPresent, nil
		}
	}
	if err := mux.NewWindow(ctx, session, name, dir); err != nil {
		return SlotPresent, fmt.Errorf("creating window %s: %w", name, err)
	}
	return SlotCreated, nil
}

// Reconcile ensures every slot has a window and reports, per slot name,
// whether it was created now.
func Reconcile(ctx context.Context, mux Mux, session string, slots []Slot) (map[string]SlotStatus, error) {
	status := make(map[string]SlotStatus, len(slots))
	for _, s := range slots {
		st, err := EnsureSlot(ctx, mux, session, s.Name, s.Dir)
		if err != nil {
			return status, err
		}
		status[s.Name] = st
	}
	return status, nil
}
