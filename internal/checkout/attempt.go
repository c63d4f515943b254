package checkout

// State is a step of one checkout attempt.
type State string

const (
	StatePending    State = "pending"
	StateRejected   State = "rejected"
	StateAuthorized State = "authorized"
	StateRecorded   State = "recorded"
)

// Rejection reasons. A form with missing fields and one with a malformed card
// both reject as invalid_card; the error details name the offending fields.
const (
	ReasonEmptyCart   = "empty_cart"
	ReasonInvalidCard = "invalid_card"
	ReasonDeclined    = "declined"
	ReasonFailed      = "failed"
)

// Attempt tracks one pass through Pending -> {Rejected, Authorized -> Recorded}.
type Attempt struct {
	State   State  `json:"state"`
	Reason  string `json:"reason,omitempty"`
	OrderID string `json:"order_id,omitempty"`
	Total   int64  `json:"total"`
}

func newAttempt() *Attempt {
	return &Attempt{State: StatePending}
}

func (a *Attempt) reject(reason string) {
	if a.State == StateRecorded {
		return
	}
	a.State = StateRejected
	a.Reason = reason
}

func (a *Attempt) authorize() {
	if a.State == StatePending {
		a.State = StateAuthorized
	}
}

func (a *Attempt) record(orderID string) {
	if a.State == StateAuthorized {
		a.State = StateRecorded
		a.OrderID = orderID
	}
}
