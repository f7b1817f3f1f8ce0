package poller

// State is the step of the polling loop currently running.
type State int

const (
	Idle State = iota
	Validating
	ResolvingSession
	FetchingSnapshot
	EmittingSnapshot
	FetchingOrders
	EmittingOrders
	Sleeping
	Stopped
)

var stateNames = [...]string{
	Idle:             "idle",
	Validating:       "validating",
	ResolvingSession: "resolving_session",
	FetchingSnapshot: "fetching_snapshot",
	EmittingSnapshot: "emitting_snapshot",
	FetchingOrders:   "fetching_orders",
	EmittingOrders:   "emitting_orders",
	Sleeping:         "sleeping",
	Stopped:          "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
