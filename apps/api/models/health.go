package models

import "time"

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded" // snapshot loaded but has nothing to serve
)

// SnapshotCounts summarises the size of a schedule snapshot
type SnapshotCounts struct {
	Stops      int `json:"stops"`
	Routes     int `json:"routes"`
	Trips      int `json:"trips"`
	Shapes     int `json:"shapes"`
	Services   int `json:"services"`
	Exceptions int `json:"exceptions"`
	Offices    int `json:"offices"`
}

// SnapshotHealth is the JSON body of GET /health
type SnapshotHealth struct {
	Status         string         `json:"status"`
	SnapshotID     string         `json:"snapshot_id"`
	Source         string         `json:"source"`
	LoadedAt       time.Time      `json:"loaded_at"`
	AgeSeconds     int            `json:"age_seconds"`
	TimeZone       string         `json:"time_zone"`
	Counts         SnapshotCounts `json:"counts"`
	ActiveVehicles int            `json:"active_vehicles"`
	Timestamp      time.Time      `json:"timestamp"`
}

// CalculateHealthStatus reports degraded when the snapshot has no stops or trips
func CalculateHealthStatus(c SnapshotCounts) string {
	if c.Stops == 0 || c.Trips == 0 {
		return StatusDegraded
	}
	return StatusOK
}
