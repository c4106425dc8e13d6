package jsoncontract

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Contract ties Extract, Repair and Validate into the single entry point
// agents call on raw LLM output (spec.md §4.1 end to end). Metrics are
// optional: with a nil Meter no repair-stage counter is created and
// nothing is recorded, so the layer works without a collector configured.
type Contract struct {
	logger       *slog.Logger
	repairStages metric.Int64Counter
}

// New builds a Contract. meter may be nil; logger may be nil (falls back
// to slog.Default()).
func New(meter metric.Meter, logger *slog.Logger) *Contract {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Contract{logger: logger}
	if meter != nil {
		if counter, err := meter.Int64Counter("jsoncontract.repair_stage",
			metric.WithDescription("count of successful JSON repairs by stage")); err == nil {
			c.repairStages = counter
		}
	}
	return c
}

// Parse extracts, repairs and validates raw LLM output against schema,
// returning the decoded document plus the repair stage that succeeded
// (for observability, per spec.md §4.1).
func (c *Contract) Parse(raw string, schema Schema) (doc map[string]any, stage string, err error) {
	candidate, err := Extract(raw)
	if err != nil {
		return nil, "", err
	}

	fixed, stage, err := Repair(candidate)
	if err != nil {
		return nil, "", err
	}
	c.recordStage(stage)

	var parsed any
	if err := json.Unmarshal([]byte(fixed), &parsed); err != nil {
		return nil, stage, err
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		if arr, ok := parsed.([]any); ok && len(arr) > 0 {
			if first, ok := arr[0].(map[string]any); ok {
				obj = first
				c.logger.Warn("jsoncontract: top-level value was an array, took first element")
			}
		}
	}

	validated, warning, verr := schema.Validate(obj)
	if verr != nil {
		return nil, stage, verr
	}
	if warning != "" {
		c.logger.Warn("jsoncontract: schema validation warning", "schema", schema.Name, "detail", warning)
	}
	return validated, stage, nil
}

func (c *Contract) recordStage(stage string) {
	if c.repairStages == nil {
		return
	}
	c.repairStages.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", stage)))
}
