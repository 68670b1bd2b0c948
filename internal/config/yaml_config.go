package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YamlOnlyKeys are bootstrap settings read before the project database is
// opened, so they cannot live in the config table (which requires an open
// DB to query). Mirrors the teacher's GH#536 fix: a setting read at
// process startup must live somewhere startup can reach without a DB.
var YamlOnlyKeys = map[string]bool{
	"dbPath":        true,
	"provider":      true,
	"daemonEnabled": true,
	"logLevel":      true,
	"userMemoryDbPath": true,
}

// IsYamlOnlyKey returns true if key should be stored in config.yaml rather
// than the project database's config table.
func IsYamlOnlyKey(key string) bool {
	return YamlOnlyKeys[key]
}

// SetYamlConfig sets a configuration value in the project's config.yaml
// file. The file is parsed as a generic document, the key is assigned a
// typed scalar (bool/int/float/string, decided by parseYamlScalar), and
// the whole document is re-marshaled with yaml.v3 rather than patched in
// place, so the on-disk format always stays valid YAML regardless of
// what was there before.
func SetYamlConfig(projectRoot, key, value string) error {
	configPath := yamlConfigPath(projectRoot)

	doc, err := readYamlDocument(configPath)
	if err != nil {
		return err
	}
	doc[key] = parseYamlScalar(value)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: marshal config.yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0o600); err != nil {
		return fmt.Errorf("config: write config.yaml: %w", err)
	}
	return nil
}

// GetYamlConfig reads a single key from config.yaml. Returns ("", false)
// if the file or key doesn't exist.
func GetYamlConfig(projectRoot, key string) (string, bool) {
	doc, err := readYamlDocument(yamlConfigPath(projectRoot))
	if err != nil {
		return "", false
	}
	v, ok := doc[key]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}

func yamlConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".open-mem", "config.yaml")
}

// readYamlDocument loads config.yaml into a generic key/value map,
// returning an empty (not nil) map when the file doesn't exist yet.
func readYamlDocument(configPath string) (map[string]any, error) {
	content, err := os.ReadFile(configPath) // #nosec G304 - path derived from projectRoot
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("config: read config.yaml: %w", err)
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("config: parse config.yaml: %w", err)
	}
	return doc, nil
}

// parseYamlScalar converts a flag/CLI string value to the typed form it
// should be stored as, so yaml.Marshal emits bare "true"/"42" rather than
// quoted strings for the common cases.
func parseYamlScalar(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
