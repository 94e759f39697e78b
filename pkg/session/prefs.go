/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Device preference storage - 音频设备偏好存储
 *
 * 两个窗口共享的唯一可写状态：输入/输出设备 id。
 * Follower 本地写入仅用于自身 UI，实际生效以 Owner 快照为准。
 */
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// PreferenceStore persists the two audio device ids visible to both roles
type PreferenceStore interface {
	Load() (DevicePreferences, error)
	Save(prefs DevicePreferences) error
}

// FilePreferenceStore stores preferences as a small JSON file in the
// application data directory shared by both windows
type FilePreferenceStore struct {
	mu   sync.Mutex
	path string
}

// NewFilePreferenceStore creates a file-backed store at the given path
func NewFilePreferenceStore(path string) *FilePreferenceStore {
	return &FilePreferenceStore{path: path}
}

// Load reads the stored preferences. A missing file is not an error:
// it yields empty preferences (system defaults).
func (s *FilePreferenceStore) Load() (DevicePreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DevicePreferences{}, nil
		}
		return DevicePreferences{}, err
	}

	var prefs DevicePreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return DevicePreferences{}, err
	}
	return prefs, nil
}

// Save writes the preferences, creating parent directories as needed
func (s *FilePreferenceStore) Save(prefs DevicePreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// MemoryPreferenceStore keeps preferences in memory, for tests and for
// processes that do not want disk persistence
type MemoryPreferenceStore struct {
	mu    sync.Mutex
	prefs DevicePreferences
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{}
}

func (s *MemoryPreferenceStore) Load() (DevicePreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs, nil
}

func (s *MemoryPreferenceStore) Save(prefs DevicePreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
	return nil
}
