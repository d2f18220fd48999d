package corpus

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// Layer names the three parallel texts a sloka can carry.
type Layer string

const (
	LayerSloka       Layer = "sloka"
	LayerTranslation Layer = "translation"
	LayerMeaning     Layer = "meaning"
)

// Loader reads the corpus file layout: one directory per kanda, containing
// files named <Kanda>_sarga_<N>_<layer>.txt. Every line inside a file has
// the form kanda::sarga::sloka::content.
type Loader struct {
	root string
}

// NewLoader creates a loader rooted at the corpus directory
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// LoadAll reads every kanda directory under the corpus root and returns the
// merged text units ordered by unit ID.
func (l *Loader) LoadAll() ([]*model.TextUnit, error) {
	dirEntries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, helper.NewError("read corpus root", err)
	}

	units := map[string]*model.TextUnit{}
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		err := l.loadKanda(filepath.Join(l.root, dirEntry.Name()), units)
		if err != nil {
			return nil, err
		}
	}

	return sortedUnits(units), nil
}

// LoadKanda reads a single kanda directory
func (l *Loader) LoadKanda(kanda string) ([]*model.TextUnit, error) {
	units := map[string]*model.TextUnit{}
	err := l.loadKanda(filepath.Join(l.root, kanda), units)
	if err != nil {
		return nil, err
	}
	return sortedUnits(units), nil
}

func (l *Loader) loadKanda(dir string, units map[string]*model.TextUnit) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return helper.NewError("read kanda directory", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".txt") {
			continue
		}
		layer, ok := fileLayer(file.Name())
		if !ok {
			continue
		}

		err := l.loadFile(filepath.Join(dir, file.Name()), layer, units)
		if err != nil {
			return err
		}
	}

	return nil
}

// fileLayer extracts the text layer from a corpus file name like
// Balakanda_sarga_1_translation.txt.
func fileLayer(name string) (Layer, bool) {
	base := strings.TrimSuffix(name, ".txt")
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return "", false
	}
	switch Layer(base[idx+1:]) {
	case LayerSloka:
		return LayerSloka, true
	case LayerTranslation:
		return LayerTranslation, true
	case LayerMeaning:
		return LayerMeaning, true
	}
	return "", false
}

func (l *Loader) loadFile(path string, layer Layer, units map[string]*model.TextUnit) error {
	file, err := os.Open(path)
	if err != nil {
		return helper.NewError("open corpus file", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Some translated slokas run long; 1 MiB covers the corpus comfortably.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, content, err := ParseLine(line)
		if err != nil {
			return helper.NewError(fmt.Sprintf("parse %s line %d", filepath.Base(path), lineNo), err)
		}

		unit, ok := units[id]
		if !ok {
			unit = &model.TextUnit{ID: id}
			units[id] = unit
		}
		switch layer {
		case LayerSloka:
			unit.Sanskrit = content
		case LayerTranslation:
			unit.Translation = content
		case LayerMeaning:
			unit.Meaning = content
		}
	}

	err = scanner.Err()
	if err != nil {
		return helper.NewError("scan corpus file", err)
	}

	return nil
}

// ParseLine splits a corpus line of the form kanda::sarga::sloka::content
// into the canonical unit ID (kanda.sarga.sloka) and the content. The
// content itself may contain further :: separators.
func ParseLine(line string) (string, string, error) {
	parts := strings.SplitN(line, "::", 4)
	if len(parts) != 4 {
		return "", "", fmt.Errorf("expected kanda::sarga::sloka::content, got %q", line)
	}

	kanda := strings.ToLower(strings.TrimSpace(parts[0]))
	sarga := strings.TrimSpace(parts[1])
	sloka := strings.TrimSpace(parts[2])
	content := strings.TrimSpace(parts[3])
	if kanda == "" || sarga == "" || sloka == "" {
		return "", "", fmt.Errorf("empty unit coordinate in %q", line)
	}

	return kanda + "." + sarga + "." + sloka, content, nil
}

func sortedUnits(units map[string]*model.TextUnit) []*model.TextUnit {
	result := make([]*model.TextUnit, 0, len(units))
	for _, unit := range units {
		result = append(result, unit)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
