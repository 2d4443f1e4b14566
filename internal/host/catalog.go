package host

import (
	"fmt"
	"os"
	"sort"

	"usedplus-economy/internal/domain"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Items []domain.StoreItem `yaml:"items"`
}

// YAMLCatalog is a store catalog read from a yaml file.
type YAMLCatalog struct {
	items map[string]domain.StoreItem
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*YAMLCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*YAMLCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &YAMLCatalog{items: make(map[string]domain.StoreItem, len(f.Items))}
	for _, it := range f.Items {
		if it.Key == "" {
			return nil, fmt.Errorf("catalog item %q has no key: %w", it.Name, domain.ErrInvalidInput)
		}
		if it.Price <= 0 {
			return nil, fmt.Errorf("catalog item %s has no price: %w", it.Key, domain.ErrInvalidInput)
		}
		if _, dup := c.items[it.Key]; dup {
			return nil, fmt.Errorf("catalog item %s listed twice: %w", it.Key, domain.ErrInvalidInput)
		}
		c.items[it.Key] = it
	}
	return c, nil
}

func (c *YAMLCatalog) Item(key string) (*domain.StoreItem, bool) {
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return &it, true
}

// Items returns every item sorted by key.
func (c *YAMLCatalog) Items() []domain.StoreItem {
	out := make([]domain.StoreItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
