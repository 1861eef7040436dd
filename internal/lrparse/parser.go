package lrparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

// Field names, in extraction order.
const (
	FieldLRNumber      = "lr_number"
	FieldVehicleNo     = "vehicle_no"
	FieldPaymentStatus = "payment_status"
	FieldTotalFreight  = "total_freight"
	FieldConsignee     = "consignee_name"
	FieldMaterial      = "material"
)

var (
	reLRNumber  = regexp.MustCompile(`(?i)LR\s*No\.?\s*:?\s*(\d+)`)
	reVehicleNo = regexp.MustCompile(`(?i)Truck[ \t]*[/.]?[ \t]*No\.?[ \t]*:?[ \t]*([A-Z0-9]+)`)
	rePayment   = regexp.MustCompile(`(?i)Payment\s*Status\s*:?\s*(Paid|To\s*Pay)`)
	reFreight   = regexp.MustCompile(`(?i)Total\s*Freight\s*[:\-]?\s*(\d[\d,]*)`)
	reConsignee = regexp.MustCompile(`(?im)Consignee[ \t]*:?[ \t]*([^\n]*)$`)
	reItemLine  = regexp.MustCompile(`^\s*\d+\s+(.+)$`)
)

// fieldExtractor finds one field in the text and writes it to the record.
// apply receives the submatches of the first match only.
type fieldExtractor struct {
	name    string
	pattern *regexp.Regexp
	apply   func(r *Record, m []string)
}

var extractors = []fieldExtractor{
	{
		name:    FieldLRNumber,
		pattern: reLRNumber,
		apply: func(r *Record, m []string) {
			r.LRNumber = strPtr(m[1])
		},
	},
	{
		name:    FieldVehicleNo,
		pattern: reVehicleNo,
		apply: func(r *Record, m []string) {
			r.VehicleNo = strPtr(strings.ToUpper(m[1]))
		},
	},
	{
		name:    FieldPaymentStatus,
		pattern: rePayment,
		apply: func(r *Record, m []string) {
			s := constants.ParsePaymentStatus(m[1])
			r.PaymentStatus = s
			r.PaymentMode = s
		},
	},
	{
		name:    FieldTotalFreight,
		pattern: reFreight,
		apply: func(r *Record, m []string) {
			// "," is always a thousands separator: 1,05,000 -> 105000
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err == nil {
				r.TotalFreight = &v
			}
		},
	},
	{
		name:    FieldConsignee,
		pattern: reConsignee,
		apply: func(r *Record, m []string) {
			if name := strings.TrimSpace(m[1]); name != "" {
				r.ConsigneeName = &name
			}
		},
	},
}

// Fields lists the names of the fields Parse looks for.
func Fields() []string {
	names := make([]string, 0, len(extractors)+1)
	for _, e := range extractors {
		names = append(names, e.name)
	}
	return append(names, FieldMaterial)
}

// Parse recovers what it can from recognised LR text. It never fails: any
// field whose label is absent stays nil and RawText always holds text.
func Parse(text string) Record {
	rec := Record{
		PaymentStatus: constants.PaymentUnknown,
		PaymentMode:   constants.PaymentUnknown,
		RawText:       text,
	}
	for _, e := range extractors {
		if m := e.pattern.FindStringSubmatch(text); m != nil {
			e.apply(&rec, m)
		}
	}
	rec.Material = materialLines(text)
	return rec
}

// materialLines joins the descriptions of itemised lines ("1 Steel Coils"),
// skipping totals rows.
func materialLines(text string) *string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "Total") {
			continue
		}
		m := reItemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if item := strings.TrimSpace(m[1]); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	joined := strings.Join(items, ", ")
	return &joined
}

func strPtr(s string) *string { return &s }
