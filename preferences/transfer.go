package preferences

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportVersion is the current bundle format version. Imports of newer
// versions are rejected outright rather than best-effort migrated.
const ExportVersion = 1

// ExportBundle is the versioned backup of everything the learner knows
type ExportBundle struct {
	Version        int                    `json:"version"`
	ExportedAt     time.Time              `json:"exportedAt"`
	ArmState       *ArmState              `json:"armState"`
	SongLogs       []SongLog              `json:"songLogs"`
	FeedbackEvents []FeedbackEvent        `json:"feedbackEvents"`
	Settings       map[string]interface{} `json:"settings"`
}

// ExportAllData assembles a bundle from the store's current contents
func ExportAllData(store *Store) (*ExportBundle, error) {
	armState, err := store.ArmState(DefaultContext)
	if err != nil {
		return nil, err
	}
	songLogs, err := store.AllSongLogs()
	if err != nil {
		return nil, err
	}
	events, err := store.AllFeedbackEvents()
	if err != nil {
		return nil, err
	}

	settings := map[string]interface{}{}
	if start, ok := store.SessionStartTime(); ok {
		settings[sessionStartSetting] = start.UnixNano()
	}

	return &ExportBundle{
		Version:        ExportVersion,
		ExportedAt:     time.Now().UTC(),
		ArmState:       armState,
		SongLogs:       songLogs,
		FeedbackEvents: events,
		Settings:       settings,
	}, nil
}

// ValidateImport checks raw bundle JSON before it is applied. The version
// must be present and no newer than ExportVersion, and the two record
// collections must be JSON arrays.
func ValidateImport(data []byte) (*ExportBundle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("import data is empty")
	}

	var probe struct {
		Version        *int            `json:"version"`
		SongLogs       json.RawMessage `json:"songLogs"`
		FeedbackEvents json.RawMessage `json:"feedbackEvents"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("import data is not valid JSON: %w", err)
	}
	if probe.Version == nil {
		return nil, fmt.Errorf("import data has no version")
	}
	if *probe.Version > ExportVersion {
		return nil, fmt.Errorf("import version %d is newer than supported version %d", *probe.Version, ExportVersion)
	}
	if !isJSONArray(probe.SongLogs) {
		return nil, fmt.Errorf("import songLogs is not an array")
	}
	if !isJSONArray(probe.FeedbackEvents) {
		return nil, fmt.Errorf("import feedbackEvents is not an array")
	}

	var bundle ExportBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("import data does not match bundle shape: %w", err)
	}
	return &bundle, nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// ImportAllData applies a validated bundle to the store. Importing an
// export of the same store leaves it unchanged.
func ImportAllData(store *Store, bundle *ExportBundle) error {
	if bundle.ArmState != nil {
		if err := store.SaveArmState(DefaultContext, bundle.ArmState); err != nil {
			return err
		}
	}
	for i := range bundle.SongLogs {
		if err := store.SaveSongLog(&bundle.SongLogs[i]); err != nil {
			return err
		}
	}
	for i := range bundle.FeedbackEvents {
		if err := store.SaveFeedbackEvent(&bundle.FeedbackEvents[i]); err != nil {
			return err
		}
	}
	if raw, ok := bundle.Settings[sessionStartSetting]; ok {
		if unix, ok := raw.(float64); ok {
			if err := store.SetSessionStartTime(time.Unix(0, int64(unix))); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteExportFile writes a timestamped bundle file under dir and returns
// its path. Filenames follow the save-file convention
// 2006-01-02_15-04-05.json.
func WriteExportFile(store *Store, dir string) (string, error) {
	bundle, err := ExportAllData(store)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, time.Now().Format("2006-01-02_15-04-05")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadImportFile loads, validates and applies a bundle file
func ReadImportFile(store *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	bundle, err := ValidateImport(data)
	if err != nil {
		return err
	}
	return ImportAllData(store, bundle)
}
