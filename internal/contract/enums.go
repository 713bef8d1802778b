package contract

import "strings"

const (
	ComponentBaseFare           = "BaseFare"
	ComponentRoomRate           = "RoomRate"
	ComponentTax                = "Tax"
	ComponentSubsidy            = "Subsidy"
	ComponentDiscount           = "Discount"
	ComponentFee                = "Fee"
	ComponentMarkup             = "Markup"
	ComponentCancellationFee    = "CancellationFee"
	ComponentAmendmentFee       = "AmendmentFee"
	ComponentRefund             = "Refund"
	ComponentCompensation       = "Compensation"
	ComponentAffiliateShareback = "AffiliateShareback"
	ComponentVAT                = "VAT"
)

const (
	SupplierConfirmed        = "Confirmed"
	SupplierIssued           = "Issued"
	SupplierInvoiced         = "Invoiced"
	SupplierSettled          = "Settled"
	SupplierCancelledWithFee = "CancelledWithFee"
	SupplierCancelledNoFee   = "CancelledNoFee"
	SupplierVoided           = "Voided"
)

const (
	PaymentCheckout   = "Checkout"
	PaymentPending    = "Pending"
	PaymentAuthorized = "Authorized"
	PaymentCaptured   = "Captured"
	PaymentSettled    = "Settled"
	PaymentRefunded   = "Refunded"
	PaymentFailed     = "Failed"
	PaymentCancelled  = "Cancelled"
	PaymentExpired    = "Expired"
)

const (
	RefundInitiated = "Initiated"
	RefundIssued    = "Issued"
	RefundClosed    = "Closed"
)

var (
	componentTypes = canonicalSet(
		ComponentBaseFare, ComponentRoomRate, ComponentTax, ComponentSubsidy, ComponentDiscount,
		ComponentFee, ComponentMarkup, ComponentCancellationFee, ComponentAmendmentFee,
		ComponentRefund, ComponentCompensation, ComponentAffiliateShareback, ComponentVAT,
	)
	supplierStatuses = canonicalSet(
		SupplierConfirmed, SupplierIssued, SupplierInvoiced, SupplierSettled,
		SupplierCancelledWithFee, SupplierCancelledNoFee, SupplierVoided,
	)
	paymentStatuses = canonicalSet(
		PaymentCheckout, PaymentPending, PaymentAuthorized, PaymentCaptured, PaymentSettled,
		PaymentRefunded, PaymentFailed, PaymentCancelled, PaymentExpired,
	)
	refundStatuses = canonicalSet(RefundInitiated, RefundIssued, RefundClosed)
)

// negative-direction component types reduce what the customer pays
var negativeComponents = map[string]bool{
	ComponentSubsidy:            true,
	ComponentDiscount:           true,
	ComponentCompensation:       true,
	ComponentRefund:             true,
	ComponentAffiliateShareback: true,
}

func canonicalSet(values ...string) map[string]string {
	out := make(map[string]string, len(values))
	for _, v := range values {
		out[strings.ToLower(v)] = v
	}
	return out
}

func lookup(set map[string]string, v string) (string, bool) {
	c, ok := set[strings.ToLower(strings.TrimSpace(v))]
	return c, ok
}

// CanonicalComponentType maps "basefare", "BASEFARE" etc. to "BaseFare".
func CanonicalComponentType(v string) (string, bool) { return lookup(componentTypes, v) }

// CanonicalSupplierStatus maps producer spellings such as "ISSUED" to the canonical status.
func CanonicalSupplierStatus(v string) (string, bool) { return lookup(supplierStatuses, v) }

func CanonicalPaymentStatus(v string) (string, bool) { return lookup(paymentStatuses, v) }

func CanonicalRefundStatus(v string) (string, bool) { return lookup(refundStatuses, v) }

// CanonicalSign is the sign a charge of this component type carries: +1 or -1.
func CanonicalSign(componentType string) int {
	if negativeComponents[componentType] {
		return -1
	}
	return 1
}
