package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"text/template"

	cmtos "github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

//go:embed config.toml.tpl
var configTemplateText string

var configTemplate = template.Must(template.New("config.toml").Parse(configTemplateText))

// RenderConfig produces the config.toml text for config. Keys in
// config.toml.tpl follow the mapstructure tags in config.go.
func RenderConfig(config *Config) ([]byte, error) {
	if err := config.ValidateBasic(); err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, config); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return buffer.Bytes(), nil
}

// WriteConfigFile writes config to its config.toml under the root.
func WriteConfigFile(config *Config) error {
	dat, err := RenderConfig(config)
	if err != nil {
		return err
	}
	path := config.ConfigFile()
	if err := cmtos.EnsureDir(filepath.Dir(path), DefaultDirPerm); err != nil {
		return err
	}
	return cmtos.WriteFile(path, dat, 0o644)
}
