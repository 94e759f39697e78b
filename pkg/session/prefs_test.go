/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Device Preference Storage Tests
 */
package session

import (
	"path/filepath"
	"testing"
)

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFilePreferenceStore(filepath.Join(t.TempDir(), "prefs.json"))

	prefs, err := store.Load()
	if err != nil {
		t.Fatalf("Missing file should not be an error: %v", err)
	}
	if prefs.InputDeviceID != "" || prefs.OutputDeviceID != "" {
		t.Errorf("Expected empty preferences, got %+v", prefs)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	// Save 需要能创建不存在的父目录
	path := filepath.Join(t.TempDir(), "app", "voice", "prefs.json")
	store := NewFilePreferenceStore(path)

	saved := DevicePreferences{
		InputDeviceID:  "mic-usb",
		OutputDeviceID: "headphones",
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != saved {
		t.Errorf("Expected %+v, got %+v", saved, loaded)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryPreferenceStore()

	prefs, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if prefs != (DevicePreferences{}) {
		t.Errorf("Expected empty preferences, got %+v", prefs)
	}

	saved := DevicePreferences{InputDeviceID: "mic-1"}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _ := store.Load()
	if loaded != saved {
		t.Errorf("Expected %+v, got %+v", saved, loaded)
	}
}
