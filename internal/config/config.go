// Package config loads layered TOML settings: built-in defaults, then the
// user's ~/.config/weave/config.toml, then the repository's
// .weave/config/config.toml, then --config key=value overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"

	"weave/internal/alias"
)

//go:embed default.toml
var defaultToml []byte

// For example: user.name, user.email, ui.color, log.level, revsets.log,
// templates.log, revset-aliases.'trunk()', colors.commit_id

// ErrNotSet is returned by Lookup for keys no layer defines.
var ErrNotSet = errors.New("no config value")

func globalConfigPath() (string, error) {
	if p := os.Getenv("WEAVE_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "weave", "config.toml"), nil
}

func repoConfigPath(repoPath string) string {
	return filepath.Join(repoPath, ".weave", "config", "config.toml")
}

func loadToml(path string) (*toml.Tree, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		tree, err := toml.TreeFromMap(map[string]interface{}{})
		if err != nil {
			return nil, fmt.Errorf("failed to create empty config: %w", err)
		}
		return tree, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := toml.LoadBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

func saveToml(tree *toml.Tree, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(tree.String()), 0644)
}

// Config is the merged view of every layer.
type Config struct {
	tree *toml.Tree
}

// Load merges the layers. repoPath may be empty outside a repository.
// overrides are "key=value" pairs applied last.
func Load(repoPath string, overrides []string) (*Config, error) {
	tree, err := toml.LoadBytes(defaultToml)
	if err != nil {
		return nil, fmt.Errorf("built-in config: %w", err)
	}
	gp, err := globalConfigPath()
	if err == nil {
		gt, err := loadToml(gp)
		if err != nil {
			return nil, err
		}
		merge(tree, gt, nil)
	}
	if repoPath != "" {
		rt, err := loadToml(repoConfigPath(repoPath))
		if err != nil {
			return nil, err
		}
		merge(tree, rt, nil)
	}
	for _, o := range overrides {
		key, val, ok := strings.Cut(o, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --config %q (expected key=value)", o)
		}
		path, err := splitKey(strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		tree.SetPath(path, parseValue(strings.TrimSpace(val)))
	}
	return &Config{tree: tree}, nil
}

// merge copies every leaf of src into dst. Tables merge key by key; any
// other value replaces what dst had.
func merge(dst, src *toml.Tree, prefix []string) {
	for _, k := range src.Keys() {
		path := append(append([]string(nil), prefix...), k)
		v := src.GetPath([]string{k})
		if sub, ok := v.(*toml.Tree); ok {
			if _, isTree := dst.GetPath(path).(*toml.Tree); !isTree {
				dst.SetPath(path, sub)
				continue
			}
			merge(dst, sub, path)
			continue
		}
		dst.SetPath(path, v)
	}
}

// splitKey splits a dotted key. Segments may be quoted to contain dots or
// parentheses, as in revset-aliases.'trunk()'.
func splitKey(key string) ([]string, error) {
	var out []string
	var sb strings.Builder
	var quote rune
	for _, r := range key {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			sb.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
		case r == '.':
			out = append(out, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in config key %q", key)
	}
	out = append(out, sb.String())
	for _, s := range out {
		if s == "" {
			return nil, fmt.Errorf("invalid config key %q", key)
		}
	}
	return out, nil
}

// parseValue reads val as a TOML value, falling back to a bare string.
func parseValue(val string) interface{} {
	t, err := toml.Load("v = " + val)
	if err != nil {
		return val
	}
	return t.Get("v")
}

// Get returns the value at a dotted key.
func (c *Config) Get(key string) (interface{}, bool) {
	path, err := splitKey(key)
	if err != nil {
		return nil, false
	}
	v := c.tree.GetPath(path)
	return v, v != nil
}

// String returns the value at key as a string, or def when it is unset.
func (c *Config) String(key, def string) string {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// StringMap returns the table at key. Every value must be a string.
func (c *Config) StringMap(key string) (map[string]string, error) {
	v, ok := c.Get(key)
	if !ok {
		return map[string]string{}, nil
	}
	t, ok := v.(*toml.Tree)
	if !ok {
		return nil, fmt.Errorf("config %s: expected a table", key)
	}
	out := make(map[string]string)
	for _, k := range t.Keys() {
		s, ok := t.GetPath([]string{k}).(string)
		if !ok {
			return nil, fmt.Errorf("config %s.%s: expected a string", key, quoteKey(k))
		}
		out[k] = s
	}
	return out, nil
}

// RevsetAliases parses the revset-aliases table.
func (c *Config) RevsetAliases() (*alias.Table, error) {
	return c.aliases("revset-aliases")
}

// TemplateAliases parses the template-aliases table.
func (c *Config) TemplateAliases() (*alias.Table, error) {
	return c.aliases("template-aliases")
}

func (c *Config) aliases(key string) (*alias.Table, error) {
	defs, err := c.StringMap(key)
	if err != nil {
		return nil, err
	}
	t, err := alias.ParseTable(defs)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", key, err)
	}
	return t, nil
}

// List returns every leaf as "key = value", sorted by key.
func (c *Config) List() []string {
	var out []string
	var walk func(t *toml.Tree, prefix string)
	walk = func(t *toml.Tree, prefix string) {
		for _, k := range t.Keys() {
			name := prefix + quoteKey(k)
			v := t.GetPath([]string{k})
			if sub, ok := v.(*toml.Tree); ok {
				walk(sub, name+".")
				continue
			}
			out = append(out, fmt.Sprintf("%s = %s", name, formatValue(v)))
		}
	}
	walk(c.tree, "")
	sort.Strings(out)
	return out
}

func quoteKey(k string) string {
	for _, r := range k {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Sprintf("%q", k)
		}
	}
	return k
}

func formatValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// SetGlobalConfigValue sets key=val in ~/.config/weave/config.toml
func SetGlobalConfigValue(key, val string) error {
	gp, err := globalConfigPath()
	if err != nil {
		return err
	}
	return setValue(gp, key, val)
}

// SetRepoConfigValue sets key=val in .weave/config/config.toml
func SetRepoConfigValue(repoPath, key, val string) error {
	return setValue(repoConfigPath(repoPath), key, val)
}

func setValue(path, key, val string) error {
	tree, err := loadToml(path)
	if err != nil {
		return err
	}
	kp, err := splitKey(key)
	if err != nil {
		return err
	}
	tree.SetPath(kp, parseValue(val))
	return saveToml(tree, path)
}

// Lookup returns the value at key formatted for display. Tables render as
// TOML.
func (c *Config) Lookup(key string) (string, error) {
	v, ok := c.Get(key)
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrNotSet, key)
	}
	if t, ok := v.(*toml.Tree); ok {
		return strings.TrimSpace(t.String()), nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}
