package domain

// Sentinel values carried in persisted log entries.
const (
	// SessionRepeating marks an entry whose milestone was just failed and is
	// being repeated: the entry keeps the previous milestone index with this
	// demoted session index.
	SessionRepeating = 999

	// MilestoneNotStarted marks a deck whose schedule position was reset.
	MilestoneNotStarted = -1
)

// LogEntry records one completed study session. The learning log is
// append-only and ordered by EndTime ascending; entries are only removed when
// the whole deck session is cleared.
type LogEntry struct {
	MilestoneIndex int    `json:"milestoneIndex"`
	SessionIndex   int    `json:"sessionIndex"`
	StartTime      int64  `json:"startTime"` // epoch-ms
	EndTime        int64  `json:"endTime"`   // epoch-ms
	NextReview     *int64 `json:"nextReview"` // epoch-ms, nil = ingrained
	IsExtra        bool   `json:"isExtra"`
	MissedCount    int    `json:"missedCount"`
}
