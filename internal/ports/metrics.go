package ports

// MetricsRecorder receives workflow-level counters. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	RecordSyncRun(workflow, result string)
	RecordStepFailure(step string)
	RecordCopyRun(result string)
}
