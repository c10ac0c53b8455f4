package domain

import "time"

// ResultStatus is the overall outcome of a sync run.
type ResultStatus string

const (
	ResultSuccess        ResultStatus = "success"
	ResultPartialSuccess ResultStatus = "partial_success"
	ResultFailed         ResultStatus = "failed"
)

// StepStatus is the outcome of a single workflow step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// Workflow step names. Per-market price steps append the market key,
// e.g. "set_prices.UAE".
const (
	StepValidate     = "validate"
	StepBuildPayload = "build_payload"
	StepImages       = "resolve_images"
	StepCreate       = "create_product"
	StepFindVariant  = "find_variant"
	StepVariant      = "update_variant"
	StepTitle        = "update_title"
	StepDefaultPrice = "update_default_price"
	StepInventory    = "set_inventory"
	StepMetafields   = "set_metafields"
	StepPrices       = "set_prices"
	StepWriteBack    = "inventory_store_writeback"
)

// StepOutcome records what happened to one workflow step. Failures in
// non-critical steps are collected here instead of aborting the run.
type StepOutcome struct {
	Step   string     `json:"step" bson:"step"`
	Status StepStatus `json:"status" bson:"status"`
	Error  string     `json:"error,omitempty" bson:"error,omitempty"`
}

// SyncReport is the collected result of one synchronization run.
type SyncReport struct {
	RunID      string        `json:"run_id" bson:"run_id"`
	Workflow   string        `json:"workflow" bson:"workflow"`
	SKU        string        `json:"sku,omitempty" bson:"sku,omitempty"`
	ProductID  string        `json:"product_id,omitempty" bson:"product_id,omitempty"`
	VariantID  string        `json:"variant_id,omitempty" bson:"variant_id,omitempty"`
	Steps      []StepOutcome `json:"steps" bson:"steps"`
	StartedAt  time.Time     `json:"started_at" bson:"started_at"`
	FinishedAt time.Time     `json:"finished_at" bson:"finished_at"`
}

// AddOK records a successful step.
func (r *SyncReport) AddOK(step string) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Status: StepOK})
}

// AddSkipped records a step that had nothing to do.
func (r *SyncReport) AddSkipped(step string) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Status: StepSkipped})
}

// AddFailed records a failed step without aborting the run.
func (r *SyncReport) AddFailed(step string, err error) {
	out := StepOutcome{Step: step, Status: StepFailed}
	if err != nil {
		out.Error = err.Error()
	}
	r.Steps = append(r.Steps, out)
}

// Overall derives the run result from the collected steps: failed when the
// create step itself failed, partial_success when any other step failed,
// success otherwise.
func (r *SyncReport) Overall() ResultStatus {
	overall := ResultSuccess
	for _, s := range r.Steps {
		if s.Status != StepFailed {
			continue
		}
		if s.Step == StepCreate || s.Step == StepValidate || s.Step == StepFindVariant {
			return ResultFailed
		}
		overall = ResultPartialSuccess
	}
	return overall
}

// StepError returns the recorded error for a step, or "" when it succeeded.
func (r *SyncReport) StepError(step string) string {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Error
		}
	}
	return ""
}
