package checkout

type State string

const (
	StateValidating State = "VALIDATING"
	StateReserving  State = "RESERVING"
	StatePricing    State = "PRICING"
	StateCommitting State = "COMMITTING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// Failed reachable dari semua state; selain itu alurnya linear.
var validNext = map[State]map[State]bool{
	StateValidating: {StateReserving: true, StateFailed: true},
	StateReserving:  {StatePricing: true, StateFailed: true},
	StatePricing:    {StateCommitting: true, StateFailed: true},
	StateCommitting: {StateCompleted: true, StateFailed: true},
	StateCompleted:  {},
	StateFailed:     {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}
