package motor

import (
	"fmt"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

// EnableToggle is the operator's motor kill switch.  Each button press turns
// both motors off if both are on, or on if both are off; a mixed state is left
// alone.
type EnableToggle struct {
	presses     func() int
	left, right *share.Share[bool]
	seen        int
}

// NewEnableToggle takes a running count of button presses, which may be
// updated from another goroutine.
func NewEnableToggle(presses func() int, left, right *share.Share[bool]) *EnableToggle {
	return &EnableToggle{
		presses: presses,
		left:    left,
		right:   right,
		seen:    presses(),
	}
}

// Step is the task body.
func (t *EnableToggle) Step() {
	for n := t.presses(); t.seen < n; t.seen++ {
		Toggle(t.left, t.right)
	}
}

func Toggle(left, right *share.Share[bool]) {
	switch l, r := left.Get(), right.Get(); {
	case l && r:
		left.Put(false)
		right.Put(false)
		fmt.Println("MOT: motors disabled")
	case !l && !r:
		left.Put(true)
		right.Put(true)
		fmt.Println("MOT: motors enabled")
	}
}
