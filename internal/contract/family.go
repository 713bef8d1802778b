package contract

// Family groups event types that share a payload shape and a fact collection.
type Family string

const (
	FamilyPricing        Family = "pricing"
	FamilyRefundIssued   Family = "refund_issued"
	FamilyPayment        Family = "payment"
	FamilySupplier       Family = "supplier"
	FamilyRefundTimeline Family = "refund_timeline"
)

const (
	EventPricingUpdated       = "PricingUpdated"
	EventPricingUpdatedDotted = "pricing.updated"
	EventRefundIssued         = "RefundIssued"
	EventRefundIssuedDotted   = "refund.issued"

	EventPaymentLifecycle  = "PaymentLifecycle"
	EventPaymentCheckout   = "payment.checkout"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentRefunded   = "payment.refunded"
	EventPaymentSettled    = "payment.settled"

	EventSupplierLifecycle       = "IssuanceSupplierLifecycle"
	EventSupplierOrderConfirmed  = "supplier.order.confirmed"
	EventSupplierOrderIssued     = "supplier.order.issued"
	EventSupplierInvoiceReceived = "supplier.invoice.received"

	EventRefundLifecycle = "RefundLifecycle"
	EventRefundInitiated = "refund.initiated"
	EventRefundClosed    = "refund.closed"
)

var eventFamilies = map[string]Family{
	EventPricingUpdated:       FamilyPricing,
	EventPricingUpdatedDotted: FamilyPricing,
	EventRefundIssued:         FamilyRefundIssued,
	EventRefundIssuedDotted:   FamilyRefundIssued,

	EventPaymentLifecycle:  FamilyPayment,
	EventPaymentCheckout:   FamilyPayment,
	EventPaymentAuthorized: FamilyPayment,
	EventPaymentCaptured:   FamilyPayment,
	EventPaymentRefunded:   FamilyPayment,
	EventPaymentSettled:    FamilyPayment,

	EventSupplierLifecycle:       FamilySupplier,
	EventSupplierOrderConfirmed:  FamilySupplier,
	EventSupplierOrderIssued:     FamilySupplier,
	EventSupplierInvoiceReceived: FamilySupplier,

	EventRefundLifecycle: FamilyRefundTimeline,
	EventRefundInitiated: FamilyRefundTimeline,
	EventRefundClosed:    FamilyRefundTimeline,
}

// FamilyOf routes an event type discriminator to its family.
func FamilyOf(eventType string) (Family, bool) {
	f, ok := eventFamilies[eventType]
	return f, ok
}
