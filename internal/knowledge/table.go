// Package knowledge maps crop labels to static agronomic guidance.
package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/cropwise/pkg/models"
	"gopkg.in/yaml.v3"
)

// DefaultKey is guaranteed to exist in every Table.
const DefaultKey = "default"

// DefaultDetail is used when the source does not define its own default.
var DefaultDetail = models.CropDetail{
	Desc:           "No extended info available for this crop.",
	FertilizerLink: "https://www.google.com/search?q=fertilizer+guide",
	Tips:           []string{"Maintain proper irrigation and nutrient levels."},
}

// Table is an immutable crop knowledge lookup. Safe for concurrent use.
type Table struct {
	entries map[string]models.CropDetail
}

// New builds a Table from entries keyed by crop name. Keys are lowercased;
// two keys that collide after lowercasing are an error. A default entry is
// synthesized when missing.
func New(entries map[string]models.CropDetail) (*Table, error) {
	t := &Table{entries: make(map[string]models.CropDetail, len(entries)+1)}
	originals := make(map[string]string, len(entries))
	for k, v := range entries {
		key := strings.ToLower(k)
		if prev, dup := originals[key]; dup {
			return nil, fmt.Errorf("crop keys %q and %q collide", prev, k)
		}
		originals[key] = k
		t.entries[key] = cloneDetail(v)
	}
	if _, ok := t.entries[DefaultKey]; !ok {
		t.entries[DefaultKey] = cloneDetail(DefaultDetail)
	}
	return t, nil
}

// DefaultOnly returns a Table containing just the synthesized default entry.
func DefaultOnly() *Table {
	t, _ := New(nil)
	return t
}

// Load reads a JSON or YAML knowledge file. It never fails: an unreadable or
// malformed source degrades to DefaultOnly, and invalid entries are skipped.
func Load(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("crop knowledge unavailable, using default entry only", "path", path, "error", err)
		return DefaultOnly()
	}

	raw, err := decode(data, filepath.Ext(path))
	if err != nil {
		slog.Warn("crop knowledge malformed, using default entry only", "path", path, "error", err)
		return DefaultOnly()
	}

	entries := make(map[string]models.CropDetail, len(raw))
	for key, detail := range raw {
		if err := validateDetail(detail); err != nil {
			slog.Warn("skipping crop knowledge entry", "crop", key, "error", err)
			continue
		}
		entries[key] = detail
	}

	t, err := New(entries)
	if err != nil {
		slog.Warn("crop knowledge has ambiguous keys, using default entry only", "path", path, "error", err)
		return DefaultOnly()
	}
	slog.Info("crop knowledge loaded", "path", path, "entries", t.Len())
	return t
}

// decode parses YAML for ".yaml"/".yml" and JSON otherwise. Both reject a
// crop key that appears twice.
func decode(data []byte, ext string) (map[string]models.CropDetail, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var raw map[string]models.CropDetail
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return decodeJSON(data)
	}
}

// decodeJSON walks the top-level object token by token, since
// encoding/json silently keeps the last of two duplicate keys.
func decodeJSON(data []byte) (map[string]models.CropDetail, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object of crops, got %v", tok)
	}

	raw := make(map[string]models.CropDetail)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if _, dup := raw[key]; dup {
			return nil, fmt.Errorf("duplicate crop key %q", key)
		}
		var detail models.CropDetail
		if err := dec.Decode(&detail); err != nil {
			return nil, fmt.Errorf("crop %q: %w", key, err)
		}
		raw[key] = detail
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after crop object")
	}
	return raw, nil
}

func validateDetail(d models.CropDetail) error {
	if strings.TrimSpace(d.Desc) == "" {
		return fmt.Errorf("desc is empty")
	}
	u, err := url.ParseRequestURI(d.FertilizerLink)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("fertilizer_link %q is not an http(s) URL", d.FertilizerLink)
	}
	if len(d.Tips) == 0 {
		return fmt.Errorf("tips are empty")
	}
	return nil
}

// Lookup resolves label case-insensitively, falling back to the default entry.
func (t *Table) Lookup(label string) models.CropDetail {
	if d, ok := t.entries[strings.ToLower(label)]; ok {
		return cloneDetail(d)
	}
	return cloneDetail(t.entries[DefaultKey])
}

// Len returns the number of entries, including the default.
func (t *Table) Len() int { return len(t.entries) }

func cloneDetail(d models.CropDetail) models.CropDetail {
	d.Tips = append([]string(nil), d.Tips...)
	return d
}
