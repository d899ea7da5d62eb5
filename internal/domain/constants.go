package domain

const (
	// Order statuses. Receipts are always collected before payments.
	OrderStatusPending           = "pending"
	OrderStatusWaitingForReceipt = "waiting_for_receipt"
	OrderStatusWaitingForPayment = "waiting_for_payment"
	OrderStatusCompleted         = "completed"
	OrderStatusCancelled         = "cancelled"

	// Payment method / beneficiary types.
	PaymentTypeCrypto = "CRYPTO"
	PaymentTypeFiat   = "FIAT"

	// ReferenceCurrency anchors the base/counter heuristic for buy/sell
	// derivation when a currency has no resolvable rate.
	ReferenceCurrency = "USD"

	// Actions the workflow engine may offer for an order.
	ActionView           = "view"
	ActionProcess        = "process"
	ActionUploadReceipt  = "upload_receipt"
	ActionAddBeneficiary = "add_beneficiary"
	ActionUploadPayment  = "upload_payment"
	ActionCancel         = "cancel"
	ActionDelete         = "delete"

	// Back-office roles.
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)
