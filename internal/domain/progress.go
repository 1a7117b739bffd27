package domain

import "time"

// ProgressEvent is one step of a run. ProgressPercent never decreases within
// a run and the terminal event is always last.
type ProgressEvent struct {
	AnalysisID      string       `json:"analysis_id"`
	Sequence        int          `json:"sequence"`
	Status          ReportStatus `json:"status"`
	Category        string       `json:"category,omitempty"`
	Message         string       `json:"message"`
	ProgressPercent int          `json:"progress_percent"`
	Terminal        bool         `json:"terminal"`
	Timestamp       time.Time    `json:"timestamp"`
}

// FeatureDecision is recomputed on every call and never persisted.
type FeatureDecision struct {
	Feature  string `json:"feature"`
	Identity string `json:"identity,omitempty"`
	Enabled  bool   `json:"enabled"`
}
