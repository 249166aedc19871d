// Package config loads the node configuration with CLI > env > file
// precedence and watches the animation color table for live edits.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sirius3/lednode/internal/logging"
)

// envPrefix namespaces every environment override.
const envPrefix = "LEDNODE_"

// LoadConfig fills opts from the TOML file and environment with proper
// precedence: CLI args > env vars > config file. Flags explicitly set
// on the command line are never overwritten. The config file path is
// taken from the struct's "Config" field.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	var configPath string
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Name == "Config" {
			configPath = v.Field(i).String()
			break
		}
	}

	if configPath != "" {
		if err := applyFile(v, t, configPath, changed); err != nil {
			return err
		}
	}
	applyEnv(v, t, changed)
	return nil
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// applyFile overlays TOML values onto fields carrying a toml tag. A
// missing file is not an error; a malformed one is.
func applyFile(v reflect.Value, t reflect.Type, path string, changed map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for i := 0; i < v.NumField(); i++ {
		ft := t.Field(i)
		if changed[flagName(ft.Name)] {
			continue
		}
		tomlPath := ft.Tag.Get("toml")
		if tomlPath == "" {
			continue
		}
		if value := lookupPath(doc, tomlPath); value != nil {
			setField(v.Field(i), value)
		}
	}
	return nil
}

// applyEnv overlays LEDNODE_-prefixed environment variables onto fields
// carrying an env tag.
func applyEnv(v reflect.Value, t reflect.Type, changed map[string]bool) {
	for i := 0; i < v.NumField(); i++ {
		ft := t.Field(i)
		if changed[flagName(ft.Name)] {
			continue
		}
		envKey := ft.Tag.Get("env")
		if envKey == "" {
			continue
		}
		if value := os.Getenv(envPrefix + envKey); value != "" {
			setFieldString(v.Field(i), value)
		}
	}
}

// flagName converts a struct field name to its CLI flag name.
// "LoggingLevel" becomes "logging-level".
func flagName(field string) string {
	var out []rune
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// lookupPath walks a nested TOML document by dotted path.
func lookupPath(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func setField(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		arr, ok := value.([]any)
		if !ok {
			return
		}
		slice := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				slice = append(slice, s)
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
}

func setFieldString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		slice := make([]string, len(parts))
		for i, part := range parts {
			slice[i] = strings.TrimSpace(part)
		}
		field.Set(reflect.ValueOf(slice))
	}
}

// LoadLoggingConfig reads the [logging] table from the config file.
// Keys other than level and format are treated as per-module levels.
// Returns defaults when the file is absent or malformed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}
	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
