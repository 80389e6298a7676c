package taskname

const (
	// Compensation tasks
	CompensationUploadApproved = "compensation:upload_approved"
	CompensationSweep          = "compensation:sweep"

	// Queues
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
