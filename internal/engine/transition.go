package engine

// Transition is a detected change in containment state for the currently
// selected geofence.
type Transition int

const (
	Unchanged Transition = iota
	Entered
	Left
)

func (t Transition) String() string {
	switch t {
	case Entered:
		return "entered"
	case Left:
		return "left"
	default:
		return "unchanged"
	}
}

// Detect compares the previously known containment state to the current one.
func Detect(wasInside, inside bool) Transition {
	switch {
	case !wasInside && inside:
		return Entered
	case wasInside && !inside:
		return Left
	default:
		return Unchanged
	}
}
