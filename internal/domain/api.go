package domain

import (
	"fmt"
	"time"
)

// APIError is the typed error raised for non-retryable REST failures.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memos api %s: %d %s", e.Endpoint, e.StatusCode, e.Message)
}

// APIHealth is the payload of GET /api/health.
type APIHealth struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Version  string `json:"version,omitempty"`
}

// OK reports whether the service considers itself healthy.
func (h *APIHealth) OK() bool {
	return h.Status == "ok" || h.Status == "healthy"
}

// Frame is one captured screenshot record.
type Frame struct {
	ID        int64     `json:"id"`
	Filepath  string    `json:"filepath"`
	CreatedAt time.Time `json:"created_at"`
	Processed bool      `json:"processed"`
}

// FramePage is one page of GET /api/frames.
type FramePage struct {
	Frames []Frame `json:"frames"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// OCRResult is the payload of GET /api/ocr/{id}.
type OCRResult struct {
	FrameID int64  `json:"frame_id"`
	Text    string `json:"text"`
}

// SearchHit is one result of GET /api/search.
type SearchHit struct {
	FrameID int64   `json:"frame_id"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// ServiceConfig is the subset of GET /api/config the doctor cares about.
type ServiceConfig struct {
	DatabasePath string `json:"database_path"`
	Backend      string `json:"backend"`
	ConfigPath   string `json:"config_path,omitempty"`
	ScreenshotsD string `json:"screenshots_dir,omitempty"`
}
