package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPresetName is the preset used when no persona is selected or when a
// requested preset does not exist.
const DefaultPresetName = "default"

// LoadPreset reads the named persona preset from dir. An unknown name falls
// back to the default preset so a typo never blocks a test run; only a
// missing default preset is an error.
func LoadPreset(dir, name string) (Persona, error) {
	if name == "" {
		name = DefaultPresetName
	}

	p, err := loadPresetFile(filepath.Join(dir, name+".yaml"))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, os.ErrNotExist) || name == DefaultPresetName {
		return Persona{}, err
	}

	p, err = loadPresetFile(filepath.Join(dir, DefaultPresetName+".yaml"))
	if err != nil {
		return Persona{}, fmt.Errorf("persona: preset %q not found and default preset unavailable: %w", name, err)
	}
	return p, nil
}

func loadPresetFile(path string) (Persona, error) {
	f, err := os.Open(path)
	if err != nil {
		return Persona{}, fmt.Errorf("persona: open preset: %w", err)
	}
	defer f.Close()

	var p Persona
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Persona{}, fmt.Errorf("persona: parse preset %s: %w", filepath.Base(path), err)
	}
	if err := validatePreset(p); err != nil {
		return Persona{}, fmt.Errorf("persona: invalid preset %s: %w", filepath.Base(path), err)
	}
	p.Phase = PhaseGreeting
	return p, nil
}

func validatePreset(p Persona) error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if strings.TrimSpace(p.Directives) == "" {
		errs = append(errs, errors.New("directives must not be empty"))
	}
	for i, item := range p.Order.Items {
		if item.Name == "" {
			errs = append(errs, fmt.Errorf("order.items[%d].name must not be empty", i))
		}
		if item.Quantity < 0 {
			errs = append(errs, fmt.Errorf("order.items[%d].quantity must not be negative", i))
		}
	}
	switch p.Order.Fulfillment {
	case "", FulfillmentDelivery, FulfillmentPickup:
	default:
		errs = append(errs, fmt.Errorf("order.fulfillment must be %q or %q, got %q",
			FulfillmentDelivery, FulfillmentPickup, p.Order.Fulfillment))
	}
	return errors.Join(errs...)
}

// ListPresets returns the preset names available in dir, sorted.
func ListPresets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("persona: read presets dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}
