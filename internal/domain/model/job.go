package model

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// JobStatus is the terminal outcome of one pipeline run.
type JobStatus string

const (
	JobDelivered JobStatus = "delivered"
	JobFailed    JobStatus = "failed"
)

// Job is one full attempt to transform, store and deliver a result for a
// single instruction. It is transient: only its effects (ledger debit, reply)
// are durable.
type Job struct {
	ID          string
	Address     string
	SourceURL   string
	Instruction string
	StartedAt   time.Time

	Status    JobStatus
	ResultURL string
	FailClass string // taxonomy label for logs/metrics, never shown to users
}

func NewJob(address, sourceURL, instruction string) *Job {
	now := time.Now()
	return &Job{
		ID:          ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Address:     address,
		SourceURL:   sourceURL,
		Instruction: instruction,
		StartedAt:   now,
	}
}

// ObjectKey derives a collision-resistant storage key for this job's
// artifact: prefix/<ulid>_<unix>.<ext>. The ULID already encodes entropy,
// the timestamp keeps keys human-scannable in the bucket.
func (j *Job) ObjectKey(prefix, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s/%s_%d%s", prefix, j.ID, j.StartedAt.Unix(), ext)
}
