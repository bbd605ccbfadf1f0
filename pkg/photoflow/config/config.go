package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/galleri/photoflow/pkg/photoflow"
	dynamorepo "github.com/galleri/photoflow/pkg/photoflow/repo/dynamo"
	memoryrepo "github.com/galleri/photoflow/pkg/photoflow/repo/memory"
	memorystorage "github.com/galleri/photoflow/pkg/photoflow/storage/memory"
	s3storage "github.com/galleri/photoflow/pkg/photoflow/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		RecordStoreType: "memory",
		StorageType:     "memory",
	}
}

// ServerConfig represents server configuration for the photoflow service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Record store configuration
	RecordStoreType string // "memory", "dynamodb"
	DynamoTable     string
	DynamoRegion    string

	// Storage configuration
	StorageType string // "memory", "s3"
	S3          s3storage.Config
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.RecordStoreType != "memory" && c.RecordStoreType != "dynamodb" {
		return errors.New("record_store_type must be 'memory' or 'dynamodb'")
	}
	if c.RecordStoreType == "dynamodb" && c.DynamoTable == "" {
		return errors.New("dynamo_table is required when using dynamodb")
	}

	if c.StorageType != "memory" && c.StorageType != "s3" {
		return errors.New("storage_type must be 'memory' or 's3'")
	}
	if c.StorageType == "s3" && c.S3.Bucket == "" {
		return errors.New("s3 bucket is required when using s3 storage")
	}

	return nil
}

// BuildService creates a pipeline Service from the server configuration
func (c *ServerConfig) BuildService(logger *slog.Logger) (photoflow.Service, error) {
	records, err := c.buildRecordStore()
	if err != nil {
		return nil, fmt.Errorf("build record store: %w", err)
	}

	blobs, err := c.buildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("build blob store: %w", err)
	}

	options := []photoflow.Option{
		photoflow.WithRecordStore(records),
		photoflow.WithBlobStore(blobs),
	}
	if logger != nil {
		options = append(options, photoflow.WithLogger(logger))
	}

	return photoflow.New(options...)
}

func (c *ServerConfig) buildRecordStore() (photoflow.RecordStore, error) {
	switch c.RecordStoreType {
	case "memory":
		return memoryrepo.New(), nil
	case "dynamodb":
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if c.DynamoRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(c.DynamoRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return dynamorepo.New(dynamodb.NewFromConfig(awsCfg), c.DynamoTable)
	default:
		return nil, fmt.Errorf("unsupported record store type: %s", c.RecordStoreType)
	}
}

func (c *ServerConfig) buildBlobStore() (photoflow.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		return s3storage.New(c.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}
