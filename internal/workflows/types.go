package workflows

type JobIngestInput struct {
	JobID string `json:"job_id"`
}
