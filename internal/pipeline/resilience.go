package pipeline

// Decision is the filter verdict for one frame.
type Decision int

const (
	// Reject discards the frame.
	Reject Decision = iota
	// AcceptChanged keeps a frame that differs from the reference; it becomes
	// the new reference.
	AcceptChanged
	// AcceptHoldover keeps a similar frame shortly after a change so slow
	// transitions are not cut off.
	AcceptHoldover
)

func (d Decision) Accepted() bool { return d != Reject }

func (d Decision) String() string {
	switch d {
	case AcceptChanged:
		return "changed"
	case AcceptHoldover:
		return "holdover"
	default:
		return "rejected"
	}
}

// Resilience counts how many similar frames are still kept after the last
// change.
type Resilience struct {
	limit     int
	remaining int
}

func NewResilience(limit int) *Resilience {
	if limit < 0 {
		limit = 0
	}
	return &Resilience{limit: limit}
}

// Decide applies the hold-over policy to one frame.
func (r *Resilience) Decide(different bool) Decision {
	if different {
		r.remaining = r.limit
		return AcceptChanged
	}
	if r.remaining > 0 {
		r.remaining--
		return AcceptHoldover
	}
	return Reject
}

func (r *Resilience) Remaining() int { return r.remaining }
