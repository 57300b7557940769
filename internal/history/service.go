package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-check/internal/extract"
	"github.com/zombor/invoice-check/internal/invoice"
)

// IDGenerator generates unique IDs for checks
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Runner runs extraction and validation over document text
type Runner interface {
	Run(ctx context.Context, text string) *extract.Result
}

// TextExtractor turns an uploaded document into plain text
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles check operations
type Service struct {
	db          DB
	runner      Runner
	text        TextExtractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(db DB, runner Runner, text TextExtractor, storage Storage) *Service {
	return NewServiceWithDeps(db, runner, text, storage, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, runner Runner, text TextExtractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		runner:      runner,
		text:        text,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "invoice"
	}

	return base + strings.ToLower(ext)
}

// ProcessUpload stores an uploaded PDF, runs the pipeline over its text and
// records the result
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte) (*Check, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	text, err := s.text.Extract(data)
	if err != nil {
		slog.Error("Failed to extract text",
			"filename", filename,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result := s.runner.Run(ctx, text)

	check := &Check{
		ID:          id,
		Filename:    savedName,
		Source:      SourceUpload,
		Record:      result.Record,
		Validation:  result.Validation,
		TextPreview: result.TextPreview,
		CreatedAt:   now,
	}

	if err := s.db.SaveCheck(check); err != nil {
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedName, "error", delErr)
		}
		return nil, fmt.Errorf("saving check to database: %w", err)
	}

	slog.Info("Invoice checked",
		"id", id,
		"filename", savedName,
		"valid", check.Validation.IsValid,
		"errors", len(check.Validation.Errors),
	)
	return check, nil
}

// ValidateManual validates hand-entered invoice fields. Input contract
// violations are returned as *invoice.InputError.
func (s *Service) ValidateManual(input invoice.ManualInput) (*Check, error) {
	rec, err := input.ToRecord()
	if err != nil {
		return nil, err
	}

	check := &Check{
		ID:         s.idGenerator.Generate(),
		Source:     SourceManual,
		Record:     rec,
		Validation: invoice.Validate(*rec),
		CreatedAt:  s.timeSource.Now(),
	}

	if err := s.db.SaveCheck(check); err != nil {
		return nil, fmt.Errorf("saving check to database: %w", err)
	}
	return check, nil
}

// GetCheck retrieves a check by ID
func (s *Service) GetCheck(id string) (*Check, error) {
	check, err := s.db.GetCheck(id)
	if err != nil {
		return nil, fmt.Errorf("getting check: %w", err)
	}
	return check, nil
}

// ListChecks returns all checks
func (s *Service) ListChecks() ([]*Check, error) {
	checks, err := s.db.ListChecks()
	if err != nil {
		return nil, fmt.Errorf("listing checks: %w", err)
	}
	return checks, nil
}

// DeleteCheck removes a check and its file
func (s *Service) DeleteCheck(id string) error {
	check, err := s.db.GetCheck(id)
	if err != nil {
		return fmt.Errorf("getting check for deletion: %w", err)
	}

	if check.Filename != "" {
		if err := s.storage.Delete(check.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", check.Filename, "error", err)
		}
	}

	if err := s.db.DeleteCheck(id); err != nil {
		return fmt.Errorf("deleting check from database: %w", err)
	}
	return nil
}

// ErrNoFile is returned for checks that were not started from an upload
var ErrNoFile = errors.New("check has no file")

// GetCheckFile retrieves the uploaded PDF of a check and its stored name
func (s *Service) GetCheckFile(id string) ([]byte, string, error) {
	check, err := s.db.GetCheck(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting check: %w", err)
	}
	if check.Filename == "" {
		return nil, "", ErrNoFile
	}

	data, err := s.storage.Get(check.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting check file: %w", err)
	}

	return data, check.Filename, nil
}
