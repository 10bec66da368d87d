package services

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed styles/song_styles.yaml
var defaultSongStyles []byte

type SongStyle struct {
	Name        string   `yaml:"-"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// StyleCatalog maps the mood and voice names clients send onto prompt text.
// Unknown names pass through verbatim so new moods work without a deploy.
type StyleCatalog struct {
	Moods  map[string]SongStyle `yaml:"moods"`
	Voices map[string]SongStyle `yaml:"voices"`
}

// LoadStyleCatalog reads path, or the embedded catalog when path is empty.
func LoadStyleCatalog(path string) (*StyleCatalog, error) {
	raw := defaultSongStyles
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read song styles %s: %w", p, err)
		}
		raw = b
	}
	var c StyleCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse song styles: %w", err)
	}
	return &c, nil
}

func lookupStyle(m map[string]SongStyle, name string) SongStyle {
	key := strings.ToLower(strings.TrimSpace(name))
	if s, ok := m[key]; ok {
		s.Name = key
		return s
	}
	return SongStyle{Name: strings.TrimSpace(name), Description: strings.TrimSpace(name)}
}

func (c *StyleCatalog) Mood(name string) SongStyle {
	if c == nil {
		return SongStyle{Name: name, Description: name}
	}
	return lookupStyle(c.Moods, name)
}

func (c *StyleCatalog) Voice(name string) SongStyle {
	if c == nil {
		return SongStyle{Name: name, Description: name}
	}
	return lookupStyle(c.Voices, name)
}
