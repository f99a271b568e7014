package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type ProjectYaml struct {
	Language   string           `yaml:"language"`
	Sanitizers []sanitizerEntry `yaml:"sanitizers"`
}

// sanitizerEntry accepts both "- address" and "- memory: {experimental: true}".
type sanitizerEntry string

func (s *sanitizerEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = sanitizerEntry(node.Value)
	case yaml.MappingNode:
		if len(node.Content) == 0 {
			return fmt.Errorf("empty sanitizer entry at line %d", node.Line)
		}
		*s = sanitizerEntry(node.Content[0].Value)
	default:
		return fmt.Errorf("unexpected sanitizer entry at line %d", node.Line)
	}
	return nil
}

func ParseProjectYaml(path string) (*ProjectYaml, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var projectYaml ProjectYaml
	if err := yaml.Unmarshal(content, &projectYaml); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &projectYaml, nil
}

func (p *ProjectYaml) SupportedSanitizers() []string {
	out := make([]string, 0, len(p.Sanitizers))
	for _, s := range p.Sanitizers {
		out = append(out, string(s))
	}
	return out
}

// sanitizerFor keeps the configured sanitizer unless project.yaml lists
// sanitizers without it, in which case the first listed one is used.
func (b *Builder) sanitizerFor(project string) string {
	projectYaml, err := ParseProjectYaml(filepath.Join(b.helper.ProjectDir(project), "project.yaml"))
	if err != nil {
		b.logger.Debug("project.yaml unavailable, using default sanitizer",
			zap.String("project", project), zap.Error(err))
		return b.defaultSanitizer
	}
	return chooseSanitizer(b.defaultSanitizer, projectYaml.SupportedSanitizers())
}

func chooseSanitizer(preferred string, supported []string) string {
	if len(supported) == 0 || slices.Contains(supported, preferred) {
		return preferred
	}
	return supported[0]
}
