package internal

import "time"

type CleanJob struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}
