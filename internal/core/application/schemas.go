package application

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"blockbookclient/internal/core/domain"
	"blockbookclient/pkg/blockbook"
)

// Schema names reported in ValidationError.
const (
	schemaBlockHash      = "blockHash"
	schemaTransaction    = "transaction"
	schemaUTXO           = "utxo"
	schemaBlock          = "block"
	schemaSystemInfo     = "systemInfo"
	schemaStatus         = "status"
	schemaFeeEstimate    = "feeEstimate"
	schemaSendResult     = "sendResult"
	schemaBalanceHistory = "balanceHistory"
)

// accountSchemas maps the caller-chosen detail level to the schema name of
// its response shape. Lookups for an empty level use
// blockbook.DefaultDetailLevel.
var accountSchemas = map[blockbook.DetailLevel]string{
	blockbook.DetailBasic:         "accountBasic",
	blockbook.DetailTokens:        "accountTokens",
	blockbook.DetailTokenBalances: "accountTokenBalances",
	blockbook.DetailTxids:         "accountTxids",
	blockbook.DetailTxs:           "accountTxs",
}

// SchemaValidator decodes raw responses and, in strict mode, asserts that
// the decoded value conforms to its schema. The mode is fixed per client
// instance at construction; permissive mode decodes without any checks.
type SchemaValidator struct {
	strict bool
	check  *validator.Validate
}

// NewSchemaValidator creates a validator in strict or permissive mode.
func NewSchemaValidator(strict bool) *SchemaValidator {
	return &SchemaValidator{
		strict: strict,
		check:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Decode unmarshals raw into out. In strict mode a failing check surfaces
// as a domain.ValidationError naming the schema and the offending value.
func (v *SchemaValidator) Decode(schema string, raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", schema, err)
	}
	if !v.strict {
		return nil
	}
	if err := v.check.Struct(out); err != nil {
		return &domain.ValidationError{Schema: schema, Value: string(raw), Err: err}
	}
	return nil
}

// decodeSlice unmarshals raw into a slice and, in strict mode, checks every
// element against its schema.
func decodeSlice[T any](v *SchemaValidator, schema string, raw json.RawMessage) ([]T, error) {
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", schema, err)
	}
	if !v.strict {
		return out, nil
	}
	for i := range out {
		if err := v.check.Struct(&out[i]); err != nil {
			return nil, &domain.ValidationError{Schema: schema, Value: string(raw), Err: err}
		}
	}
	return out, nil
}
