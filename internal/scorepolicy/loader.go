package scorepolicy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML policy file. KnownFields(true) makes typos and
// leftover fields a hard error: a threshold that silently falls back
// to zero would corrupt every score it touches.
func Load(path string) (*Policy, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if err := Validate(&p); err != nil {
		return nil, data, fmt.Errorf("invalid policy %s: %w", path, err)
	}

	return &p, data, nil
}

// LoadOrDefault loads the file when path is set, otherwise returns the
// built-in policy. The built-in policy is validated too: a broken
// Default() should fail loudly at startup, not at scoring time.
func LoadOrDefault(path string) (*Policy, error) {
	if path == "" {
		p := Default()
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("built-in policy invalid: %w", err)
		}
		return p, nil
	}
	p, _, err := Load(path)
	return p, err
}

// Hash returns the SHA-256 of the policy's canonical JSON form. Struct
// marshalling keeps field order deterministic, and map keys are sorted
// by encoding/json, so equal policies always hash equal.
func Hash(p *Policy) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// MarshalYAML renders the policy back to YAML, used by the policy CLI
// to print the active rulebook.
func MarshalYAML(p *Policy) ([]byte, error) {
	return yaml.Marshal(p)
}
