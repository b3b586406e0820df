package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/getevo/evo/v2/lib/settings"
	"github.com/nats-io/nats.go"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	appnats "github.com/taskdesk/taskdesk-backend/apps/nats"
)

const departmentChildrenKeyPrefix = "dept_children:"

// departmentCacheTTL bounds staleness if an invalidation message is
// lost.
func departmentCacheTTL() time.Duration {
	ttl := settings.Get("CACHE.DEPARTMENT_TTL").Int()
	if ttl <= 0 {
		ttl = 300
	}
	return time.Duration(ttl) * time.Second
}

// CachedDepartmentSource reads the department tree through Redis.
// Authorization resolves the same closures on nearly every request, so
// child lookups are cached per department and dropped whenever the
// tree changes. Without Redis it falls straight through to the inner
// source.
type CachedDepartmentSource struct {
	Inner models.DepartmentSource
}

func (c CachedDepartmentSource) ChildDepartments(departmentID uint) ([]uint, error) {
	if !IsAvailable() {
		return c.Inner.ChildDepartments(departmentID)
	}

	key := fmt.Sprintf("%s%d", departmentChildrenKeyPrefix, departmentID)
	lookupCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if cached, err := Client.Get(lookupCtx, key).Result(); err == nil {
		var children []uint
		if err := json.Unmarshal([]byte(cached), &children); err == nil {
			return children, nil
		}
	}

	children, err := c.Inner.ChildDepartments(departmentID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(children); err == nil {
		Client.Set(lookupCtx, key, data, departmentCacheTTL())
	}
	return children, nil
}

func (c CachedDepartmentSource) DepartmentExists(departmentID uint) (bool, error) {
	// Existence checks are cheap single-row lookups; not worth caching
	return c.Inner.DepartmentExists(departmentID)
}

// InvalidateDepartmentCache drops every cached child list and tells
// the other instances to do the same. Call after any department
// create, move, or status change.
func InvalidateDepartmentCache() {
	dropDepartmentKeys()
	appnats.Publish("departments.changed", []byte("reload"))
}

// SubscribeToDepartmentInvalidation drops the local cache when another
// instance changes the department tree.
func SubscribeToDepartmentInvalidation() {
	_, err := appnats.Subscribe("departments.changed", func(msg *nats.Msg) {
		log.Println("Received department change signal, dropping closure cache...")
		dropDepartmentKeys()
	})
	if err != nil {
		log.Printf("Failed to subscribe to department changes: %v", err)
	}
}

func dropDepartmentKeys() {
	if !IsAvailable() {
		return
	}
	dropCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys, err := Client.Keys(dropCtx, departmentChildrenKeyPrefix+"*").Result()
	if err != nil {
		log.Printf("Failed to list department cache keys: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := Client.Del(dropCtx, keys...).Err(); err != nil {
			log.Printf("Failed to drop department cache keys: %v", err)
		}
	}
}
