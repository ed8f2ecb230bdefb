package node

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spectrumscale/scale-go/common/scale"
)

// MinFreePercentAfterRemoval is the share of the free space on the remaining disks that must still
// be free after the data of the removed disks was restriped onto them.
const MinFreePercentAfterRemoval = 20

// CapacityError is returned when removing disks from a filesystem is rejected.
type CapacityError struct {
	Filesystem     string   `json:"filesystem"`
	Disks          []string `json:"disks"`
	SizeToRemoveKB uint64   `json:"sizeToRemoveKB"`
	FreeOnOthersKB uint64   `json:"freeOnOthersKB"`
	Percent        int64    `json:"percent"`
	err            error
}

func (e *CapacityError) Error() string {
	switch e.err {
	case ErrInsufficientCapacity:
		return fmt.Sprintf("%s: filesystem %s would only have %d%% of %d KiB free after restriping %d KiB from %s (minimum %d%%)",
			e.err, e.Filesystem, e.Percent, e.FreeOnOthersKB, e.SizeToRemoveKB, strings.Join(e.Disks, ","), MinFreePercentAfterRemoval)
	default:
		return fmt.Sprintf("%s: filesystem %s, disks %s", e.err, e.Filesystem, strings.Join(e.Disks, ","))
	}
}

func (e *CapacityError) Unwrap() error {
	return e.err
}

// CheckRemovalSafe verifies the remaining disks of a filesystem can absorb the data of the disks to
// remove. The snapshot must contain the capacity of every disk in the filesystem. This is a static
// estimate, the actual restripe may behave differently.
func CheckRemovalSafe(filesystem string, disksToRemove []string, snapshot []scale.DiskCapacity) error {
	capErr := &CapacityError{Filesystem: filesystem, Disks: disksToRemove}

	for _, d := range disksToRemove {
		if !slices.ContainsFunc(snapshot, func(c scale.DiskCapacity) bool { return c.NSD == d }) {
			capErr.err = ErrCapacityUnknown
			capErr.Disks = []string{d}
			return capErr
		}
	}

	others := 0
	for _, c := range snapshot {
		if slices.Contains(disksToRemove, c.NSD) {
			capErr.SizeToRemoveKB += c.UsedKB()
		} else {
			others++
			capErr.FreeOnOthersKB += c.FreeKB
		}
	}

	if others == 0 {
		capErr.err = ErrNoRemainingCapacity
		return capErr
	}
	if capErr.FreeOnOthersKB == 0 {
		capErr.err = ErrInsufficientCapacity
		return capErr
	}

	projected := int64(capErr.FreeOnOthersKB) - int64(capErr.SizeToRemoveKB)
	capErr.Percent = floorDiv(projected*100, int64(capErr.FreeOnOthersKB))
	if capErr.Percent < MinFreePercentAfterRemoval {
		capErr.err = ErrInsufficientCapacity
		return capErr
	}
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
