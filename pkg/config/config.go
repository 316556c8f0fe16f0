// Package config loads the kerf configuration file: default settings,
// machine limits, a tool library and material cutting data. Values in a
// job script take precedence over the file.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/trochoid"
	"github.com/pelletier/go-toml/v2"
)

// Config is the contents of a configuration file.
type Config struct {
	Settings  geom.Settings   `toml:"settings"`
	Machine   job.Machine     `toml:"machine"`
	Trochoid  trochoid.Params `toml:"trochoid"`
	Tools     []tool.Tool     `toml:"tools"`
	Materials []tool.Material `toml:"materials"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Settings:  geom.DefaultSettings(),
		Machine:   job.DefaultMachine(),
		Trochoid:  trochoid.DefaultParams(),
		Materials: tool.DefaultMaterials(),
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, camerr.InvalidInput("config: load", "%s: %v", path, err)
	}
	return c, nil
}

// Parse decodes a configuration. Fields absent from data keep their
// defaults. Materials in data replace the built-in material of the same
// name; the other built-in materials are kept.
func Parse(data []byte) (*Config, error) {
	const op = "config: parse"
	c := Default()
	builtin := c.Materials
	c.Materials = nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, camerr.InvalidInput(op, "line %d column %d: %v", row, col, derr)
		}
		return nil, camerr.InvalidInput(op, "%v", err)
	}

	for _, m := range builtin {
		if _, ok := tool.FindMaterial(c.Materials, m.Name); !ok {
			c.Materials = append(c.Materials, m)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings and every library tool.
func (c *Config) Validate() error {
	const op = "config: validate"
	if c.Settings.Resolution <= 0 {
		return camerr.InvalidInput(op, "resolution %g must be positive", c.Settings.Resolution)
	}
	if c.Machine.SafeZ <= 0 {
		return camerr.InvalidInput(op, "safe_z %g must be above the stock", c.Machine.SafeZ)
	}
	seen := make(map[string]bool)
	for _, t := range c.Tools {
		if t.Name == "" {
			return camerr.InvalidInput(op, "library tool without a name")
		}
		if seen[t.Name] {
			return camerr.InvalidInput(op, "tool %q defined twice", t.Name)
		}
		seen[t.Name] = true
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply fills in what the job script did not define: settings, machine
// and library tools not already in the job.
func (c *Config) Apply(j *job.Job) {
	if !j.Defined.Settings {
		j.Settings = c.Settings
	}
	if !j.Defined.Machine {
		j.Machine = c.Machine
	}
	for _, t := range c.Tools {
		if _, ok := j.Tools[t.Name]; !ok {
			j.AddTool(t)
		}
	}
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}
