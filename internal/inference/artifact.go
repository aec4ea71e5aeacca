package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/heartline/internal/common"
)

// Default artifact file names inside an artifacts directory.
const (
	ModelFileName  = "model.json"
	ScalerFileName = "scaler.json"
)

// LoadNetwork reads and validates a network artifact.
func LoadNetwork(path string) (*Network, error) {
	var n Network
	if err := readJSON(path, &n); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrArtifactInvalid, path, err)
	}
	return &n, nil
}

// LoadScaler reads and validates a scaler artifact.
func LoadScaler(path string) (*StandardScaler, error) {
	var s StandardScaler
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrArtifactInvalid, path, err)
	}
	return &s, nil
}

// SaveNetwork writes a network artifact.
func SaveNetwork(path string, n *Network) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid network: %w", err)
	}
	return writeJSON(path, n)
}

// SaveScaler writes a scaler artifact.
func SaveScaler(path string, s *StandardScaler) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid scaler: %w", err)
	}
	return writeJSON(path, s)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", common.ErrArtifactMissing, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrArtifactInvalid, path, err)
	}
	return nil
}

// writeJSON writes through a temp file so a crash never leaves a partial
// artifact behind.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
