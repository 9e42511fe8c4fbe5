// Package job contains the periodic background jobs run by the web server.
package job

import (
	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/util/common"
)

// ExpiringStore is a session store that can evict its expired entries.
type ExpiringStore interface {
	RemoveExpired() int
}

// SessionCleanupJob periodically evicts expired sessions from the in-memory store.
type SessionCleanupJob struct {
	store ExpiringStore
}

// NewSessionCleanupJob creates a new session cleanup job instance.
func NewSessionCleanupJob(store ExpiringStore) *SessionCleanupJob {
	return &SessionCleanupJob{store: store}
}

// Run removes expired sessions from the store.
func (j *SessionCleanupJob) Run() {
	defer common.Recover("session cleanup job")
	if n := j.store.RemoveExpired(); n > 0 {
		logger.Debugf("session cleanup job removed %d expired sessions", n)
	}
}
