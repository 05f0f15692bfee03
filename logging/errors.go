package logging

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ErrorTracker aggregates error occurrences by severity
type ErrorTracker struct {
	mu     sync.Mutex
	errors map[string]*ErrorStats
}

// ErrorStats tracks statistics for a specific error
type ErrorStats struct {
	ErrorType string
	Message   string
	Severity  string
	Count     int64
	FirstSeen time.Time
	LastSeen  time.Time
}

// NewErrorTracker creates a new error tracker
func NewErrorTracker() *ErrorTracker {
	return &ErrorTracker{errors: make(map[string]*ErrorStats)}
}

// Track records an error occurrence
func (et *ErrorTracker) Track(ctx context.Context, err error, severity string, extra map[string]interface{}) {
	if err == nil {
		return
	}

	errorKey := fmt.Sprintf("%s:%s", severity, err.Error())

	et.mu.Lock()
	defer et.mu.Unlock()

	stats, exists := et.errors[errorKey]
	if !exists {
		stats = &ErrorStats{
			ErrorType: fmt.Sprintf("%T", err),
			Message:   err.Error(),
			Severity:  severity,
			FirstSeen: time.Now(),
		}
		et.errors[errorKey] = stats
	}

	stats.Count++
	stats.LastSeen = time.Now()
}

// Global error tracker
var globalErrorTracker = NewErrorTracker()

// TrackError tracks an error in the global tracker
func TrackError(ctx context.Context, err error, severity string, extra map[string]interface{}) {
	globalErrorTracker.Track(ctx, err, severity, extra)
}
