package domain

import "time"

type MetricKind string

const (
	MetricAPI      MetricKind = "api"
	MetricDatabase MetricKind = "database"
	MetricCustom   MetricKind = "custom"
)

type PerformanceMetric struct {
	Kind      MetricKind    `json:"kind"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"requestId,omitempty"`
	UserID    string        `json:"userId,omitempty"`

	// api
	Method       string `json:"method,omitempty"`
	Path         string `json:"path,omitempty"`
	StatusCode   int    `json:"statusCode,omitempty"`
	RequestSize  int64  `json:"requestSize,omitempty"`
	ResponseSize int64  `json:"responseSize,omitempty"`

	// database
	Table    string `json:"table,omitempty"`
	RowCount int    `json:"rowCount,omitempty"`
	Success  bool   `json:"success"`
}

type MetricSummary struct {
	Kind            MetricKind         `json:"kind"`
	Count           int                `json:"count"`
	AverageDuration time.Duration      `json:"averageDuration"`
	Slowest         *PerformanceMetric `json:"slowest,omitempty"`
	Fastest         *PerformanceMetric `json:"fastest,omitempty"`
}
