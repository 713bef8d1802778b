package obligation

import (
	"testing"
	"time"

	"github.com/smallbiznis/pricingread/internal/contract"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func int64p(v int64) *int64 { return &v }

func supplierRow(ref string, version int64, status string, due int64, lines ...factdomain.PayableLine) *factdomain.SupplierTimeline {
	return &factdomain.SupplierTimeline{
		EventID:           ref + "-" + status,
		OrderID:           "ORD-1",
		OrderDetailID:     "OD-1",
		SupplierID:        "HOTEL-1",
		SupplierReference: ref,
		TimelineVersion:   version,
		Status:            status,
		AmountDue:         int64p(due),
		Currency:          "IDR",
		PayableLines:      datatypes.NewJSONType(lines),
		IngestedAt:        t0.Add(time.Duration(version) * time.Minute),
	}
}

func affiliateLines() []factdomain.PayableLine {
	return []factdomain.PayableLine{
		{ObligationType: contract.ObligationSupplier, PartyID: "HOTEL-1", Amount: 250000, Currency: "IDR"},
		{ObligationType: contract.ObligationAffiliateCommission, PartyID: "R-1", PartyName: "Reseller", Amount: 4694, Currency: "IDR"},
		{ObligationType: contract.ObligationTaxWithholding, PartyID: "TAX_PPH23", PartyName: "PPH23 Tax", Amount: 516, Currency: "IDR"},
	}
}

func TestResolveRebooking(t *testing.T) {
	rows := []*factdomain.SupplierTimeline{
		supplierRow("REF-A", 1, contract.SupplierConfirmed, 240000, affiliateLines()...),
		supplierRow("REF-A", 2, contract.SupplierCancelledNoFee, 240000, affiliateLines()...),
		supplierRow("REF-B", 1, contract.SupplierConfirmed, 250000, affiliateLines()...),
	}

	report := Resolve("ORD-1", rows)
	require.Len(t, report.Instances, 2)
	assert.Equal(t, "REF-A", report.Instances[0].SupplierReference)
	assert.EqualValues(t, 0, report.Instances[0].EffectivePayable)
	assert.Equal(t, BasisNone, report.Instances[0].PayableBasis)
	assert.EqualValues(t, 250000, report.Instances[1].EffectivePayable)

	assert.EqualValues(t, 250000, report.DetailPayable("OD-1", "IDR"))

	// only the confirmed replacement accrues affiliate and tax obligations
	require.Len(t, report.Affiliates, 1)
	assert.EqualValues(t, 4694, report.Affiliates[0].Amount)
	require.Len(t, report.Taxes, 1)
	assert.EqualValues(t, 516, report.Taxes[0].Amount)
	assert.Equal(t, "TAX_PPH23", report.Taxes[0].PartyID)
}

func TestEffectiveStatusTable(t *testing.T) {
	tests := []struct {
		status string
		fee    *int64
		want   int64
		basis  string
	}{
		{status: contract.SupplierConfirmed, want: 1000, basis: BasisAmountDue},
		{status: contract.SupplierIssued, want: 1000, basis: BasisAmountDue},
		{status: contract.SupplierInvoiced, want: 1000, basis: BasisAmountDue},
		{status: contract.SupplierSettled, want: 1000, basis: BasisAmountDue},
		{status: contract.SupplierCancelledWithFee, fee: int64p(150), want: 150, basis: BasisCancellationFee},
		{status: contract.SupplierCancelledNoFee, want: 0, basis: BasisNone},
		{status: contract.SupplierVoided, want: 0, basis: BasisNone},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			row := supplierRow("REF", 1, tt.status, 1000)
			row.CancellationFeeAmount = tt.fee
			amount, currency, basis := Effective(row)
			assert.Equal(t, tt.want, amount)
			assert.Equal(t, "IDR", currency)
			assert.Equal(t, tt.basis, basis)
		})
	}
}

func TestLatestBreaksTiesByIngestion(t *testing.T) {
	early := supplierRow("REF-A", 2, contract.SupplierConfirmed, 100)
	late := supplierRow("REF-A", 2, contract.SupplierVoided, 100)
	late.IngestedAt = early.IngestedAt.Add(time.Second)
	older := supplierRow("REF-A", 1, contract.SupplierSettled, 100)

	got := Latest([]*factdomain.SupplierTimeline{late, older, early})
	require.Len(t, got, 1)
	assert.Equal(t, contract.SupplierVoided, got[0].Status)
}

func TestCancelledWithFeeKeepsFeeCurrency(t *testing.T) {
	row := supplierRow("REF-A", 1, contract.SupplierCancelledWithFee, 100000)
	row.CancellationFeeAmount = int64p(25)
	row.CancellationFeeCurrency = "USD"

	report := Resolve("ORD-1", []*factdomain.SupplierTimeline{row})
	assert.EqualValues(t, 25, report.DetailPayable("OD-1", "USD"))
	assert.EqualValues(t, 0, report.DetailPayable("OD-1", "IDR"))
	assert.Empty(t, report.Affiliates)
}
