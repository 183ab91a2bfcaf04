package activities

type ProcessJobInput struct {
	JobID string `json:"job_id"`
}

type ProcessJobOutput struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	ChunksIndexed int    `json:"chunks_indexed"`
	Error         string `json:"error,omitempty"`
}
