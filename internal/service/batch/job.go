package batch

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a single file job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job tracks one input file through the pipeline.
type Job struct {
	ID     uuid.UUID
	Source string
	Output string
	Status Status
	Points int
	Err    error
}

func newJob(source, output string) Job {
	return Job{ID: uuid.New(), Source: source, Output: output, Status: StatusPending}
}

func (j *Job) start() error {
	if j.Status != StatusPending {
		return fmt.Errorf("job %s: cannot start from %s", j.ID, j.Status)
	}
	j.Status = StatusRunning
	return nil
}

func (j *Job) finish(points int, err error) error {
	if j.Status != StatusRunning {
		return fmt.Errorf("job %s: cannot finish from %s", j.ID, j.Status)
	}
	if err != nil {
		j.Status = StatusFailed
		j.Err = err
		return nil
	}
	j.Status = StatusSucceeded
	j.Points = points
	return nil
}
