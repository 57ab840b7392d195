package domain

// SessionState identifies where a conversation currently is. Terminal
// outcomes (committed, cancelled) are not states that persist: reaching
// them destroys the session.
type SessionState string

const (
	// Trade-entry flow.
	StateAwaitingAction SessionState = "awaiting_action"
	StateAwaitingSymbol SessionState = "awaiting_symbol"
	StateAwaitingUnits  SessionState = "awaiting_units"
	StateAwaitingWallet SessionState = "awaiting_wallet"

	// Wallet-registration flow.
	StateAwaitingAddress SessionState = "awaiting_address"
)

// CallDraft is the partial call collected so far. Fields are filled in
// strictly in state order; a field is meaningful only once the session has
// advanced past the state that collects it.
type CallDraft struct {
	Action Action  `json:"action,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
	Units  float64 `json:"units,omitempty"`
}

// Session is the ephemeral state of an in-progress conversation.
// At most one exists per user; it is destroyed on completion, cancellation,
// or replacement by a new entry point.
type Session struct {
	UserKey string       `json:"user_key"`
	State   SessionState `json:"state"`
	Draft   CallDraft    `json:"draft"`
}
