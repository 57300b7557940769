// Package history keeps completed invoice checks and the PDFs they came from.
package history

import (
	"errors"
	"time"

	"github.com/zombor/invoice-check/internal/invoice"
)

// Source says how a check was started
type Source string

const (
	SourceUpload Source = "upload"
	SourceManual Source = "manual"
)

// ErrCheckNotFound is returned when no check has the requested ID
var ErrCheckNotFound = errors.New("check not found")

// Check is one extraction and validation run
type Check struct {
	ID          string                   `json:"id"`
	Filename    string                   `json:"filename,omitempty"` // empty for manual checks
	Source      Source                   `json:"source"`
	Record      *invoice.Record          `json:"invoice"`
	Validation  invoice.ValidationResult `json:"validation"`
	TextPreview string                   `json:"textPreview,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
}
