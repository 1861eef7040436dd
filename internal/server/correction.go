package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/lrparse"
)

const correctionSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "lr_number":      {"type": ["string", "null"], "pattern": "^[0-9]+$"},
    "vehicle_no":     {"type": ["string", "null"], "pattern": "^[A-Za-z0-9]+$", "maxLength": 16},
    "payment_status": {"type": "string", "enum": ["Paid", "To Pay", "Unknown"]},
    "total_freight":  {"type": ["number", "null"], "minimum": 0},
    "consignee_name": {"type": ["string", "null"], "maxLength": 200},
    "material":       {"type": ["string", "null"], "maxLength": 500}
  }
}`

var correctionSchema = jsonschema.MustCompileString("correction.json", correctionSchemaJSON)

type correctionRequest struct {
	LRNumber      *string  `json:"lr_number"`
	VehicleNo     *string  `json:"vehicle_no"`
	PaymentStatus string   `json:"payment_status"`
	TotalFreight  *float64 `json:"total_freight"`
	ConsigneeName *string  `json:"consignee_name"`
	Material      *string  `json:"material"`
}

// parseCorrection validates a correction payload and converts it into a record.
// Omitted fields are cleared; raw text is kept by the repository.
func parseCorrection(body []byte) (lrparse.Record, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return lrparse.Record{}, common.InvalidInputf("malformed JSON body: %v", err)
	}
	if err := correctionSchema.Validate(doc); err != nil {
		return lrparse.Record{}, common.NewAppError(common.CodeValidation, validationMessage(err), fmt.Errorf("%w: %w", common.ErrValidation, err))
	}

	var req correctionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return lrparse.Record{}, common.InvalidInputf("malformed JSON body: %v", err)
	}

	status := constants.ParsePaymentStatus(req.PaymentStatus)
	rec := lrparse.Record{
		LRNumber:      trimmed(req.LRNumber),
		VehicleNo:     trimmed(req.VehicleNo),
		PaymentStatus: status,
		PaymentMode:   status,
		TotalFreight:  req.TotalFreight,
		ConsigneeName: trimmed(req.ConsigneeName),
		Material:      trimmed(req.Material),
	}
	if rec.VehicleNo != nil {
		v := strings.ToUpper(*rec.VehicleNo)
		rec.VehicleNo = &v
	}
	return rec, nil
}

func validationMessage(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("correction %s: %s", loc, leaf.Message)
	}
	return "correction does not match schema"
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
