package rotation

import (
	"fmt"
	"slices"

	"github.com/virtkit/snapwheel/internal/proxmox"
)

// TargetSpec is the configured rotation target set. Exactly one of All,
// VMIDs, or Tags is expected to be populated; ExcludeTags applies on top
// of whichever selection mode is active.
type TargetSpec struct {
	All         bool
	VMIDs       []int
	Tags        []string
	ExcludeTags []string
}

// SelectionWarning flags a guest that was named explicitly in the target
// spec but is absent from the live inventory. It is non-fatal: the run
// proceeds for all other guests.
type SelectionWarning struct {
	VMID int
}

func (w SelectionWarning) String() string {
	return fmt.Sprintf("guest %d not found in inventory", w.VMID)
}

// SelectGuests resolves the target spec against the inventory snapshot
// taken at run start. Template guests are never selected.
func SelectGuests(spec TargetSpec, inventory []proxmox.GuestRef) ([]proxmox.GuestRef, []SelectionWarning) {
	byID := make(map[int]proxmox.GuestRef, len(inventory))
	for _, guest := range inventory {
		byID[guest.ID] = guest
	}

	var selected []proxmox.GuestRef
	var warnings []SelectionWarning

	switch {
	case len(spec.VMIDs) > 0:
		for _, id := range spec.VMIDs {
			guest, ok := byID[id]
			if !ok {
				warnings = append(warnings, SelectionWarning{VMID: id})
				continue
			}
			selected = append(selected, guest)
		}
	case len(spec.Tags) > 0:
		for _, guest := range inventory {
			if hasAnyTag(guest, spec.Tags) {
				selected = append(selected, guest)
			}
		}
	case spec.All:
		selected = append(selected, inventory...)
	}

	filtered := selected[:0]
	for _, guest := range selected {
		if guest.Template {
			continue
		}
		if hasAnyTag(guest, spec.ExcludeTags) {
			continue
		}
		filtered = append(filtered, guest)
	}
	return filtered, warnings
}

func hasAnyTag(guest proxmox.GuestRef, tags []string) bool {
	for _, tag := range tags {
		if slices.Contains(guest.Tags, tag) {
			return true
		}
	}
	return false
}
