package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusBilled    = "billed"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeaway = "takeaway"
)

// ── Payments (CHECK constrained in DB) ──

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

const (
	PaymentStatusPaid = "paid"
)
