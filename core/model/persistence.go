package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveModel gob-encodes m into filename, creating parent directories.
func SaveModel(m any, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := SaveModelToWriter(m, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadModel decodes filename into m, which must be a pointer.
func LoadModel(m any, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadModelFromReader(m, file)
}

// SaveModelToWriter gob-encodes m into w.
func SaveModelToWriter(m any, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// LoadModelFromReader decodes a gob stream into m.
func LoadModelFromReader(m any, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}
