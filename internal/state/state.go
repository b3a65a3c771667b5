package state

import (
	"sync"
	"time"

	"recruitpro/internal/types"
)

// ServerState holds the global server state
type ServerState struct {
	Mode             string
	LaunchAt         time.Time
	MaintenanceUntil time.Time
	FeedRefreshedAt  time.Time
	FeedsOK          int
	FeedsFailed      int
	StartedAt        time.Time
	mutex            sync.RWMutex
}

var globalState = &ServerState{
	Mode:      "live",
	StartedAt: time.Now(),
}

// Init sets the mode and countdown targets at startup
func Init(mode string, launchAt, maintenanceUntil time.Time) {
	globalState.mutex.Lock()
	defer globalState.mutex.Unlock()
	globalState.Mode = mode
	globalState.LaunchAt = launchAt
	globalState.MaintenanceUntil = maintenanceUntil
	globalState.StartedAt = time.Now()
}

// GetMode returns the current site mode
func GetMode() string {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()
	return globalState.Mode
}

// Target returns the countdown target for name
func Target(name string) (time.Time, bool) {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()
	switch name {
	case types.TargetLaunch:
		return globalState.LaunchAt, true
	case types.TargetMaintenance:
		return globalState.MaintenanceUntil, true
	}
	return time.Time{}, false
}

// RecordFeedRefresh stores the outcome of the last feed refresh
func RecordFeedRefresh(at time.Time, ok, failed int) {
	globalState.mutex.Lock()
	defer globalState.mutex.Unlock()
	globalState.FeedRefreshedAt = at
	globalState.FeedsOK = ok
	globalState.FeedsFailed = failed
}

// GetServerState returns the full server state
func GetServerState() types.StateSnapshot {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()

	return types.StateSnapshot{
		Mode:             globalState.Mode,
		LaunchAt:         globalState.LaunchAt,
		MaintenanceUntil: globalState.MaintenanceUntil,
		FeedRefreshedAt:  globalState.FeedRefreshedAt,
		FeedsOK:          globalState.FeedsOK,
		FeedsFailed:      globalState.FeedsFailed,
		StartedAt:        globalState.StartedAt,
	}
}
