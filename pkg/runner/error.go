// pkg/runner/error.go
package runner

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/model"
	"github.com/David-Botos/data-quality/pkg/validator"
)

// ErrorCategory classifies configuration errors reported by checks
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryDatasetNotLoaded
	ErrorCategoryColumnNotFound
	ErrorCategoryInvalidRule
	ErrorCategoryUnknownKind
	ErrorCategoryOther
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryDatasetNotLoaded:
		return "DatasetNotLoaded"
	case ErrorCategoryColumnNotFound:
		return "ColumnNotFound"
	case ErrorCategoryInvalidRule:
		return "InvalidRule"
	case ErrorCategoryUnknownKind:
		return "UnknownKind"
	case ErrorCategoryOther:
		return "Other"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// ErrorRecord represents one configuration-error outcome
type ErrorRecord struct {
	Category  ErrorCategory
	CheckID   string
	Dataset   string
	Column    string
	Message   string
	Timestamp time.Time
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))
	sb.WriteString(fmt.Sprintf("Check: %s ", r.CheckID))
	if r.Dataset != "" {
		sb.WriteString(fmt.Sprintf("Dataset: %s ", r.Dataset))
	}
	if r.Column != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", r.Column))
	}
	sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	return sb.String()
}

// ErrorHandler collects configuration errors across a run. It is safe for
// concurrent use.
type ErrorHandler struct {
	logger        *zap.Logger
	errorCounts   map[ErrorCategory]int
	sampleErrors  map[ErrorCategory][]ErrorRecord
	datasetErrors map[string]int
	mu            sync.Mutex
	maxSamples    int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:        logger,
		errorCounts:   make(map[ErrorCategory]int),
		sampleErrors:  make(map[ErrorCategory][]ErrorRecord),
		datasetErrors: make(map[string]int),
		maxSamples:    5, // Store up to 5 sample errors per category
	}
}

// CategorizeError maps an outcome error message onto a category
func CategorizeError(message string) ErrorCategory {
	switch {
	case message == "":
		return ErrorCategoryNone
	case strings.Contains(message, validator.ErrDatasetNotLoaded.Error()):
		return ErrorCategoryDatasetNotLoaded
	case strings.Contains(message, validator.ErrColumnNotFound.Error()):
		return ErrorCategoryColumnNotFound
	case strings.Contains(message, validator.ErrUnknownKind.Error()):
		return ErrorCategoryUnknownKind
	case strings.Contains(message, validator.ErrInvalidRule.Error()):
		return ErrorCategoryInvalidRule
	default:
		return ErrorCategoryOther
	}
}

// RecordOutcome saves the outcome if it is a configuration error and
// reports whether it was one
func (eh *ErrorHandler) RecordOutcome(outcome model.CheckOutcome) bool {
	if outcome.Status != model.StatusConfigError {
		return false
	}
	eh.RecordError(ErrorRecord{
		Category:  CategorizeError(outcome.Error),
		CheckID:   outcome.CheckID,
		Dataset:   outcome.Dataset,
		Column:    outcome.Column,
		Message:   outcome.Error,
		Timestamp: time.Now().UTC(),
	})
	return true
}

// RecordError saves an error occurrence
func (eh *ErrorHandler) RecordError(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++

	samples := eh.sampleErrors[record.Category]
	if len(samples) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(samples, record)
	}

	if record.Dataset != "" {
		eh.datasetErrors[record.Dataset]++
	}

	eh.logger.Warn("Check configuration error",
		zap.String("category", record.Category.String()),
		zap.String("check", record.CheckID),
		zap.String("dataset", record.Dataset),
		zap.String("column", record.Column),
		zap.String("error", record.Message))
}

// Total returns the number of recorded errors
func (eh *ErrorHandler) Total() int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	total := 0
	for _, count := range eh.errorCounts {
		total += count
	}
	return total
}

// GetErrorSummary returns a copy of the error counts by category
func (eh *ErrorHandler) GetErrorSummary() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	summary := make(map[ErrorCategory]int)
	for category, count := range eh.errorCounts {
		summary[category] = count
	}
	return summary
}

// GetErrorSamples returns sample errors for each category
func (eh *ErrorHandler) GetErrorSamples() map[ErrorCategory][]ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make(map[ErrorCategory][]ErrorRecord)
	for category, records := range eh.sampleErrors {
		categorySamples := make([]ErrorRecord, len(records))
		copy(categorySamples, records)
		samples[category] = categorySamples
	}
	return samples
}

// GetDatasetErrorCounts returns error counts by dataset
func (eh *ErrorHandler) GetDatasetErrorCounts() map[string]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	counts := make(map[string]int)
	for dataset, count := range eh.datasetErrors {
		counts[dataset] = count
	}
	return counts
}
