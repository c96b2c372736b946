package remote

// EventKind classifies stream events the core reacts to.
type EventKind int

const (
	// EventTextCreated starts a new assistant text block.
	EventTextCreated EventKind = iota + 1
	// EventTextDelta carries the next fragment of the current text block.
	EventTextDelta
	// EventRequiresAction carries a run waiting for tool outputs.
	EventRequiresAction
	// EventRunStatus carries any other run status change, terminal ones included.
	EventRunStatus
)

func (k EventKind) String() string {
	switch k {
	case EventTextCreated:
		return "text_created"
	case EventTextDelta:
		return "text_delta"
	case EventRequiresAction:
		return "requires_action"
	case EventRunStatus:
		return "run_status"
	}
	return "unknown"
}

// Event is one decoded stream event. Text is set for text events, Run for run events.
type Event struct {
	Kind EventKind
	Text string
	Run  Run
}

// Stream yields events in generation order. It mirrors the iterator shape of
// the SDK streams: call Next until it returns false, then check Err.
type Stream interface {
	Next() bool
	Current() Event
	Err() error
	Close() error
}

// SliceStream replays a fixed list of events.
type SliceStream struct {
	events []Event
	idx    int
	err    error
}

// NewSliceStream returns a Stream over events; err is reported after the last event.
func NewSliceStream(err error, events ...Event) *SliceStream {
	return &SliceStream{events: events, idx: -1, err: err}
}

func (s *SliceStream) Next() bool {
	if s.idx+1 >= len(s.events) {
		s.idx = len(s.events)
		return false
	}
	s.idx++
	return true
}

func (s *SliceStream) Current() Event {
	if s.idx < 0 || s.idx >= len(s.events) {
		return Event{}
	}
	return s.events[s.idx]
}

func (s *SliceStream) Err() error {
	if s.idx >= len(s.events) {
		return s.err
	}
	return nil
}

func (s *SliceStream) Close() error { return nil }
