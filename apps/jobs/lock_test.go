package jobs

import (
	"testing"
	"time"
)

func TestLockManager_LocalLocking(t *testing.T) {
	manager := NewLockManager(time.Minute)

	if !manager.TryLock("sweep") {
		t.Fatal("first TryLock must succeed")
	}
	if manager.TryLock("sweep") {
		t.Fatal("second TryLock on the same job must fail")
	}
	if !manager.TryLock("reminders") {
		t.Fatal("locks must be per job")
	}

	manager.Unlock("sweep")
	if !manager.TryLock("sweep") {
		t.Fatal("TryLock must succeed again after Unlock")
	}
}

func TestLockManager_InstanceID(t *testing.T) {
	a := NewLockManager(time.Minute)
	b := NewLockManager(time.Minute)
	if a.GetInstanceID() == "" {
		t.Fatal("instance id must not be empty")
	}
	if a.GetInstanceID() == b.GetInstanceID() {
		t.Fatal("instance ids must be unique")
	}
}
