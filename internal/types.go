package internal

import "time"

// EvalRun identifies one grade / improve / auto-improve invocation as stored
// in the run history database.
type EvalRun struct {
	ID            string    `json:"id"`
	DocPath       string    `json:"doc_path"`
	RunType       string    `json:"run_type"`
	TargetScore   float64   `json:"target_score"`
	MaxIterations int       `json:"max_iterations"`
	Scale         string    `json:"scale"`
	Status        string    `json:"status"`
	InitialScore  float64   `json:"initial_score"`
	FinalScore    float64   `json:"final_score"`
	Timestamp     time.Time `json:"timestamp"`
}
