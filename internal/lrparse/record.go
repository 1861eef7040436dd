package lrparse

import "github.com/joseph-ayodele/ashwini-cargo/constants"

// Record is the best-effort field set recovered from one lorry receipt.
// Nil pointers mean the field's label was not found in the text.
type Record struct {
	LRNumber      *string                 `json:"lr_number"`
	VehicleNo     *string                 `json:"vehicle_no"`
	PaymentStatus constants.PaymentStatus `json:"payment_status"`
	PaymentMode   constants.PaymentStatus `json:"payment_mode"`
	TotalFreight  *float64                `json:"total_freight"`
	ConsigneeName *string                 `json:"consignee_name"`
	Material      *string                 `json:"material"`
	RawText       string                  `json:"raw_text"`
}

// LegacyPaymentMode is the payment mode the old console stored: anything
// other than "To Pay", including an unreadable status, became "Paid".
func (r Record) LegacyPaymentMode() constants.PaymentStatus {
	if r.PaymentMode == constants.PaymentToPay {
		return constants.PaymentToPay
	}
	return constants.PaymentPaid
}

// Missing lists the structured fields that were not recovered.
func (r Record) Missing() []string {
	var out []string
	if r.LRNumber == nil {
		out = append(out, FieldLRNumber)
	}
	if r.VehicleNo == nil {
		out = append(out, FieldVehicleNo)
	}
	if !r.PaymentStatus.Known() {
		out = append(out, FieldPaymentStatus)
	}
	if r.TotalFreight == nil {
		out = append(out, FieldTotalFreight)
	}
	if r.ConsigneeName == nil {
		out = append(out, FieldConsignee)
	}
	if r.Material == nil {
		out = append(out, FieldMaterial)
	}
	return out
}

// NeedsReview is true when any structured field is missing or the payment status is unknown.
func (r Record) NeedsReview() bool {
	return len(r.Missing()) > 0
}
