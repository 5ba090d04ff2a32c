package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# BucketFS Configuration File
#
# Every key can be overridden with an environment variable: upper-case the
# dotted path, replace dots with underscores and prefix BUCKETFS_, e.g.
#   BUCKETFS_STORE_TYPE=s3
#   BUCKETFS_STORE_S3_BUCKET=notebooks
`

// sectionComments documents each top-level section in the generated file,
// in output order.
var sectionComments = []struct {
	key     string
	comment string
}{
	{"logging", "# Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output (stdout, stderr, file path)."},
	{"server", "# Process-wide settings."},
	{"store", "# Object store holding the namespace. type selects one of the backend sections below;\n# key_prefix roots the namespace inside the bucket."},
	{"contents", "# Document content manager: names for new untitled entries and listing behavior."},
	{"adapters", "# Contents REST API. Set token to require bearer authentication."},
	{"metrics", "# Prometheus endpoint."},
	{"tracing", "# OpenTelemetry spans around namespace operations."},
}

// InitConfig writes a default configuration file at the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := renderDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// renderDefaultConfig encodes the default document with a comment above
// every section.
func renderDefaultConfig() ([]byte, error) {
	doc := defaultDocument(GetDefaultConfig())

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, section := range sectionComments {
		value := &yaml.Node{}
		if err := value.Encode(doc[section.key]); err != nil {
			return nil, fmt.Errorf("failed to encode %s section: %w", section.key, err)
		}
		key := &yaml.Node{
			Kind:        yaml.ScalarNode,
			Value:       section.key,
			HeadComment: section.comment,
		}
		root.Content = append(root.Content, key, value)
	}

	body, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return append([]byte(configHeader+"\n"), body...), nil
}
