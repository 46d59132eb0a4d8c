package domain

// Transaction kinds.
const (
	TxKindOnRamp  = "onramp"
	TxKindOffRamp = "offramp"
)

// Transaction statuses. A record moves pending -> processing -> completed
// or failed; the pending -> processing step is the atomic claim that grants
// the exclusive right to mint or burn.
const (
	TxStatusPending    = "pending"
	TxStatusProcessing = "processing"
	TxStatusCompleted  = "completed"
	TxStatusFailed     = "failed"
)

// Payout statuses for off-ramp records. The burn is the authoritative
// completion signal; payout is a secondary, independently retryable step.
const (
	PayoutNotApplicable       = "not_applicable"
	PayoutPending             = "pending"
	PayoutQueued              = "queued"
	PayoutPaid                = "paid"
	PayoutFailed              = "failed"
	PayoutPendingAccountSetup = "pending_account_setup"
)

// TokenDecimals is the token's fixed-point scale: 1 token = 10^6 minor units.
const TokenDecimals = 6

// CentsToMinorUnits is the multiplier from USD cents to token minor units
// (2 fiat decimals to 6 token decimals, 1:1 value).
const CentsToMinorUnits = 10000
