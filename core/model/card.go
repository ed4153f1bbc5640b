package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

const cardFormatVersion = "1.0"

// CardSpec identifies the model a card describes.
type CardSpec struct {
	Name          string `json:"name"`
	FormatVersion string `json:"format_version"`
}

// LinearParams are the learned parameters of a linear classifier.
type LinearParams struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Card is a human-readable JSON export of a trained model's parameters.
type Card struct {
	Spec   CardSpec        `json:"model_spec"`
	Params json.RawMessage `json:"params"`
}

// WriteCard encodes params as a card named modelName.
func WriteCard(modelName string, params any, w io.Writer) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	card := Card{
		Spec:   CardSpec{Name: modelName, FormatVersion: cardFormatVersion},
		Params: raw,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&card); err != nil {
		return fmt.Errorf("failed to encode card: %w", err)
	}
	return nil
}

// WriteCardFile writes a card to filename, creating parent directories.
func WriteCardFile(modelName string, params any, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteCard(modelName, params, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadCard decodes and validates a card.
func ReadCard(r io.Reader) (*Card, error) {
	var card Card
	if err := json.NewDecoder(r).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if card.Spec.FormatVersion == "" {
		return nil, errors.NewValueError("ReadCard", "format_version is required")
	}
	if card.Spec.FormatVersion != cardFormatVersion {
		return nil, errors.NewValueError("ReadCard",
			fmt.Sprintf("unsupported format version: %s", card.Spec.FormatVersion))
	}
	if card.Spec.Name == "" {
		return nil, errors.NewValueError("ReadCard", "model name is required")
	}
	return &card, nil
}

// LinearParams decodes the card's params as linear parameters.
func (c *Card) LinearParams() (*LinearParams, error) {
	var p LinearParams
	if err := json.Unmarshal(c.Params, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if len(p.Coefficients) == 0 {
		return nil, errors.NewValueError("Card.LinearParams", "coefficients cannot be empty")
	}
	if len(p.Features) != 0 && len(p.Features) != len(p.Coefficients) {
		return nil, errors.NewValueError("Card.LinearParams",
			fmt.Sprintf("features (%d) does not match coefficients length (%d)",
				len(p.Features), len(p.Coefficients)))
	}
	return &p, nil
}
