// Package ledger keeps the durable record of which photographs have
// been published. It is the idempotence anchor of the pipeline: records
// are never deleted and a published record is terminal.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/kleinnic74/photopost/domain"
	"bitbucket.org/kleinnic74/photopost/domain/gps"
)

type Status string

const (
	Pending   = Status("pending")
	Published = Status("published")
	Failed    = Status("failed")
)

// PhotoRecord is the publication state of one photograph, keyed by its
// content-derived identity.
type PhotoRecord struct {
	ID          domain.ID        `json:"id"`
	Path        string           `json:"path"`
	Taken       time.Time        `json:"taken,omitempty"`
	Location    *gps.Coordinates `json:"gps,omitempty"`
	Place       string           `json:"place,omitempty"`
	Status      Status           `json:"status"`
	LastAttempt time.Time        `json:"lastAttempt,omitempty"`
	Attempts    int              `json:"attempts,omitempty"`
	PostURI     string           `json:"postURI,omitempty"`
	PostLink    string           `json:"postLink,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

type NotFoundError domain.ID

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no ledger record for photo '%s'", string(e))
}

func NotFound(id domain.ID) error {
	return NotFoundError(id)
}

type AlreadyPublishedError domain.ID

func (e AlreadyPublishedError) Error() string {
	return fmt.Sprintf("photo '%s' is already published", string(e))
}

func IsAlreadyPublished(err error) bool {
	var target AlreadyPublishedError
	return errors.As(err, &target)
}

// Ledger is the durable publication record. All mutations are atomic,
// the on-disk state stays readable after abrupt termination at any
// point.
type Ledger interface {
	// Get returns the record for the given identity.
	Get(id domain.ID) (*PhotoRecord, bool, error)
	// IsPublished reports whether the identity has a terminal published
	// record.
	IsPublished(id domain.ID) (bool, error)
	// MarkPending upserts the record with the given metadata and moves
	// it to pending. Refused for published records.
	MarkPending(rec PhotoRecord) error
	// MarkPublished moves the record to its terminal state with the
	// returned post identifiers. Idempotent for the same URI, refused
	// when the record is already published under a different one.
	MarkPublished(id domain.ID, postURI, postLink string) error
	// MarkFailed records a retryable failure. Refused for published
	// records.
	MarkFailed(id domain.ID, reason string) error
	// Reset re-opens a record back to pending. This is the explicit
	// operator override behind force-republish and the only way past a
	// published record.
	Reset(id domain.ID) error
	// All returns every record, for audit and end-of-run reporting.
	All() ([]PhotoRecord, error)
}
