package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportDigest builds the weekly look-ahead and activity reports.
	TaskReportDigest = "report:digest"
)

// DigestPayload describes a digest run. An empty RunID is assigned by the handler.
type DigestPayload struct {
	RunID       string    `json:"run_id,omitempty"`
	Formats     []string  `json:"formats,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewDigestTask constructs an Asynq task.
func NewDigestTask(payload DigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportDigest, data, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}
