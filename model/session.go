package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a discovery session
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionError     SessionStatus = "error"
	SessionStopped   SessionStatus = "stopped"
)

// Active reports whether the session occupies the single active slot
func (s SessionStatus) Active() bool {
	return s == SessionRunning || s == SessionPaused
}

// SessionSettings is the configuration snapshot a discovery session runs with
type SessionSettings struct {
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	MaxEntitiesPerUnit  int           `json:"max_entities_per_unit"`
	UnitTimeout         time.Duration `json:"unit_timeout"`
}

// DefaultSessionSettings returns the settings used when a session is started
// without explicit configuration
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		ConfidenceThreshold: 0.7,
		MaxEntitiesPerUnit:  10,
		UnitTimeout:         30 * time.Second,
	}
}

// DiscoverySession is one run of the extraction pipeline over the corpus
type DiscoverySession struct {
	ID              uuid.UUID       `json:"session_id"`
	Status          SessionStatus   `json:"status"`
	Settings        SessionSettings `json:"settings"`
	TotalUnits      int             `json:"total_units"`
	ProcessedUnits  int             `json:"processed_units"`
	SkippedUnits    int             `json:"skipped_units"`
	EntitiesFound   int             `json:"entities_found"`
	LastUnitID      string          `json:"last_unit_id,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Progress describes a session's advancement for status queries
type Progress struct {
	SessionID        uuid.UUID     `json:"session_id"`
	Status           SessionStatus `json:"status"`
	TotalUnits       int           `json:"total_units"`
	ProcessedUnits   int           `json:"processed_units"`
	SkippedUnits     int           `json:"skipped_units"`
	EntitiesFound    int           `json:"entities_found"`
	UnitsPerMinute   float64       `json:"units_per_minute"`
	EstimatedSeconds float64       `json:"estimated_seconds_remaining"`
}

// ComputeProgress derives the rate and remaining-time estimate from the
// session counters and elapsed wall time
func (s *DiscoverySession) ComputeProgress(now time.Time) Progress {
	p := Progress{
		SessionID:      s.ID,
		Status:         s.Status,
		TotalUnits:     s.TotalUnits,
		ProcessedUnits: s.ProcessedUnits,
		SkippedUnits:   s.SkippedUnits,
		EntitiesFound:  s.EntitiesFound,
	}
	elapsed := now.Sub(s.StartTime).Minutes()
	if elapsed > 0 && s.ProcessedUnits > 0 {
		p.UnitsPerMinute = float64(s.ProcessedUnits) / elapsed
		remaining := s.TotalUnits - s.ProcessedUnits
		if remaining > 0 && p.UnitsPerMinute > 0 {
			p.EstimatedSeconds = float64(remaining) / p.UnitsPerMinute * 60
		}
	}
	return p
}
