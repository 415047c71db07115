package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/moments/internal/flagx"
	"github.com/dmitrijs2005/moments/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the DTO read from a JSON or YAML config file. Durations
// accept either "90s"-style strings or integer nanoseconds. Empty fields
// keep the value from the previous layer.
type FileConfig struct {
	Mode                    string         `json:"mode" yaml:"mode"`
	LocalDSN                string         `json:"local_dsn" yaml:"local_dsn"`
	DatabaseDSN             string         `json:"database_dsn" yaml:"database_dsn"`
	ObjectStore             string         `json:"object_store" yaml:"object_store"`
	S3RootUser              string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PublicBaseURL         string         `json:"s3_public_base_url" yaml:"s3_public_base_url"`
	S3UseSSL                *bool          `json:"s3_use_ssl" yaml:"s3_use_ssl"`
	OwnerEmail              string         `json:"owner_email" yaml:"owner_email"`
	SecretKey               string         `json:"secret_key" yaml:"secret_key"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration" yaml:"session_validity_duration"`
	UploadConcurrency       int            `json:"upload_concurrency" yaml:"upload_concurrency"`
	ExportDir               string         `json:"export_dir" yaml:"export_dir"`
	LogBackend              string         `json:"log_backend" yaml:"log_backend"`
}

// parseFile loads the file named by -c/-config, if any. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. Unreadable or
// malformed files panic.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, c)
	default:
		err = json.Unmarshal(raw, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&config.Mode, c.Mode)
	set(&config.LocalDSN, c.LocalDSN)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.ObjectStore, c.ObjectStore)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	set(&config.OwnerEmail, c.OwnerEmail)
	set(&config.SecretKey, c.SecretKey)
	set(&config.ExportDir, c.ExportDir)
	set(&config.LogBackend, c.LogBackend)

	if c.S3UseSSL != nil {
		config.S3UseSSL = *c.S3UseSSL
	}
	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.UploadConcurrency != 0 {
		config.UploadConcurrency = c.UploadConcurrency
	}
}
