/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Instance management for Store instances.
 * Uses sync.Map for thread-safe access from multiple goroutines.
 */
package voice

import (
	"sync"
)

var (
	// Store instances: instanceID -> *Store
	stores sync.Map
)

// RegisterStore registers a store under its instance ID
func RegisterStore(s *Store) {
	// Close existing store if any
	if existing, ok := stores.Load(s.InstanceID()); ok {
		existing.(*Store).Close()
	}
	stores.Store(s.InstanceID(), s)
}

// GetStore returns a store by instance ID
func GetStore(instanceID string) *Store {
	if v, ok := stores.Load(instanceID); ok {
		return v.(*Store)
	}
	return nil
}

// UnregisterStore removes a store without closing it
func UnregisterStore(instanceID string) {
	stores.Delete(instanceID)
}

// CleanupAllStores closes and removes every registered store
func CleanupAllStores() {
	stores.Range(func(key, value interface{}) bool {
		if s, ok := value.(*Store); ok {
			s.Close()
		}
		stores.Delete(key)
		return true
	})
}
