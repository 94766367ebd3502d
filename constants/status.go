package constants

// RunState is the lifecycle state of one processing run.
type RunState string

const (
	StateReceived         RunState = "RECEIVED"
	StateTextExtracted    RunState = "TEXT_EXTRACTED"
	StateTemplateResolved RunState = "TEMPLATE_RESOLVED"
	StateFieldsExtracted  RunState = "FIELDS_EXTRACTED"
	StateDispatched       RunState = "DISPATCHED"
	StateAcknowledged     RunState = "ACKNOWLEDGED" // terminal success
	StateFailed           RunState = "FAILED"       // terminal failure
)

// Stage names the pipeline step a failure is attributed to.
type Stage string

const (
	StageSource     Stage = "source"
	StageCracking   Stage = "cracking"
	StageTemplate   Stage = "template"
	StageExtraction Stage = "extraction"
	StageDispatch   Stage = "dispatch"
)
