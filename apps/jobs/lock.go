package jobs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	appredis "github.com/taskdesk/taskdesk-backend/apps/redis"
)

// LockManager prevents the same job from running concurrently across
// instances. With Redis available it takes a distributed lock; without
// it, a process-local mutex still protects a single instance.
type LockManager struct {
	instanceID string
	ttl        time.Duration

	mu    sync.Mutex
	local map[string]bool
}

// NewLockManager creates a lock manager with a unique instance id.
func NewLockManager(ttl time.Duration) *LockManager {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return &LockManager{
		instanceID: fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		ttl:        ttl,
		local:      make(map[string]bool),
	}
}

// GetInstanceID returns this instance's identifier.
func (l *LockManager) GetInstanceID() string {
	return l.instanceID
}

// TryLock attempts to take the lock for a job. Returns false when the
// job already runs here or elsewhere.
func (l *LockManager) TryLock(jobName string) bool {
	l.mu.Lock()
	if l.local[jobName] {
		l.mu.Unlock()
		return false
	}
	l.local[jobName] = true
	l.mu.Unlock()

	if !appredis.IsAvailable() {
		return true
	}

	lockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := appredis.Client.SetNX(lockCtx, l.key(jobName), l.instanceID, l.ttl).Result()
	if err != nil {
		// Redis hiccup: fall back to the local lock we already hold
		return true
	}
	if !ok {
		l.mu.Lock()
		delete(l.local, jobName)
		l.mu.Unlock()
	}
	return ok
}

// Unlock releases the lock for a job.
func (l *LockManager) Unlock(jobName string) {
	l.mu.Lock()
	delete(l.local, jobName)
	l.mu.Unlock()

	if !appredis.IsAvailable() {
		return
	}

	lockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Only release our own lock
	if holder, err := appredis.Client.Get(lockCtx, l.key(jobName)).Result(); err == nil && holder == l.instanceID {
		appredis.Client.Del(lockCtx, l.key(jobName))
	}
}

func (l *LockManager) key(jobName string) string {
	return "job_lock:" + jobName
}
