// Package obligation derives what is currently owed to suppliers and affiliate parties
// from the latest status of each supplier instance.
package obligation

import (
	"sort"

	"github.com/smallbiznis/pricingread/internal/contract"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
)

const (
	BasisAmountDue       = "amount_due"
	BasisCancellationFee = "cancellation_fee"
	BasisNone            = "none"
)

// Instance is the effective payable of one supplier instance.
type Instance struct {
	factdomain.SupplierKey
	Status           string `json:"status"`
	TimelineVersion  int64  `json:"supplier_timeline_version"`
	Currency         string `json:"currency"`
	EffectivePayable int64  `json:"effective_payable"`
	PayableBasis     string `json:"payable_basis"`
	LatestEventID    string `json:"latest_event_id"`
}

// DetailTotal sums effective payables of every instance under one order detail.
type DetailTotal struct {
	OrderDetailID    string `json:"order_detail_id"`
	Currency         string `json:"currency"`
	EffectivePayable int64  `json:"effective_payable"`
	Instances        int    `json:"instances"`
}

// PartyTotal is one affiliate or tax party's accrued obligation.
type PartyTotal struct {
	ObligationType string `json:"obligation_type"`
	PartyID        string `json:"party_id"`
	PartyName      string `json:"party_name"`
	Currency       string `json:"currency"`
	Amount         int64  `json:"amount"`
}

type Report struct {
	OrderID    string        `json:"order_id"`
	Instances  []Instance    `json:"instances"`
	Details    []DetailTotal `json:"details"`
	Affiliates []PartyTotal  `json:"affiliate_commissions"`
	Taxes      []PartyTotal  `json:"tax_withholdings"`
}

// Effective applies the status table to one supplier row.
func Effective(row *factdomain.SupplierTimeline) (amount int64, currency, basis string) {
	switch row.Status {
	case contract.SupplierConfirmed, contract.SupplierIssued, contract.SupplierInvoiced, contract.SupplierSettled:
		if row.AmountDue != nil {
			return *row.AmountDue, row.Currency, BasisAmountDue
		}
		return 0, row.Currency, BasisAmountDue
	case contract.SupplierCancelledWithFee:
		currency = row.CancellationFeeCurrency
		if currency == "" {
			currency = row.Currency
		}
		if row.CancellationFeeAmount != nil {
			return *row.CancellationFeeAmount, currency, BasisCancellationFee
		}
		return 0, currency, BasisCancellationFee
	default:
		return 0, row.Currency, BasisNone
	}
}

// PaysInFull reports whether a status keeps the original amount owed.
func PaysInFull(status string) bool {
	switch status {
	case contract.SupplierConfirmed, contract.SupplierIssued, contract.SupplierInvoiced, contract.SupplierSettled:
		return true
	}
	return false
}

// Latest keeps the newest row of every supplier instance: highest version, then the
// latest ingestion, then the highest row id.
func Latest(rows []*factdomain.SupplierTimeline) []*factdomain.SupplierTimeline {
	latest := map[factdomain.SupplierKey]*factdomain.SupplierTimeline{}
	for _, row := range rows {
		cur, ok := latest[row.Key()]
		if !ok || newer(row, cur) {
			latest[row.Key()] = row
		}
	}

	out := make([]*factdomain.SupplierTimeline, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

func newer(a, b *factdomain.SupplierTimeline) bool {
	if a.TimelineVersion != b.TimelineVersion {
		return a.TimelineVersion > b.TimelineVersion
	}
	if !a.IngestedAt.Equal(b.IngestedAt) {
		return a.IngestedAt.After(b.IngestedAt)
	}
	return a.ID > b.ID
}

// Resolve builds the obligation report for one order from its supplier timeline rows.
// A rebooked supplier is just another instance; cancelled originals contribute what
// their status says.
func Resolve(orderID string, rows []*factdomain.SupplierTimeline) *Report {
	report := &Report{
		OrderID:    orderID,
		Instances:  []Instance{},
		Details:    []DetailTotal{},
		Affiliates: []PartyTotal{},
		Taxes:      []PartyTotal{},
	}

	type detailKey struct{ detail, currency string }
	type partyKey struct{ kind, party, currency string }
	details := map[detailKey]*DetailTotal{}
	parties := map[partyKey]*PartyTotal{}
	var detailOrder []detailKey
	var partyOrder []partyKey

	for _, row := range Latest(rows) {
		amount, currency, basis := Effective(row)
		report.Instances = append(report.Instances, Instance{
			SupplierKey:      row.Key(),
			Status:           row.Status,
			TimelineVersion:  row.TimelineVersion,
			Currency:         currency,
			EffectivePayable: amount,
			PayableBasis:     basis,
			LatestEventID:    row.EventID,
		})

		dk := detailKey{row.OrderDetailID, currency}
		if _, ok := details[dk]; !ok {
			details[dk] = &DetailTotal{OrderDetailID: row.OrderDetailID, Currency: currency}
			detailOrder = append(detailOrder, dk)
		}
		details[dk].EffectivePayable += amount
		details[dk].Instances++

		if !PaysInFull(row.Status) {
			continue
		}
		for _, line := range row.PayableLines.Data() {
			if line.ObligationType == contract.ObligationSupplier {
				continue
			}
			pk := partyKey{line.ObligationType, line.PartyID, line.Currency}
			if _, ok := parties[pk]; !ok {
				parties[pk] = &PartyTotal{
					ObligationType: line.ObligationType,
					PartyID:        line.PartyID,
					PartyName:      line.PartyName,
					Currency:       line.Currency,
				}
				partyOrder = append(partyOrder, pk)
			}
			parties[pk].Amount += line.Amount
		}
	}

	for _, dk := range detailOrder {
		report.Details = append(report.Details, *details[dk])
	}
	for _, pk := range partyOrder {
		p := *parties[pk]
		if p.ObligationType == contract.ObligationTaxWithholding {
			report.Taxes = append(report.Taxes, p)
		} else {
			report.Affiliates = append(report.Affiliates, p)
		}
	}
	return report
}

// DetailPayable returns the effective payable of one order detail in one currency.
func (r *Report) DetailPayable(orderDetailID, currency string) int64 {
	for _, d := range r.Details {
		if d.OrderDetailID == orderDetailID && d.Currency == currency {
			return d.EffectivePayable
		}
	}
	return 0
}
