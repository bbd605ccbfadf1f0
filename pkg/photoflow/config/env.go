package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Environment variable mapping:
//
//	PORT        - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//
//	RECORDS_URL - Record store connection string (one of):
//	              - "memory"                           - In-memory store (default)
//	              - "dynamodb://TABLE?region=us-east-1" - DynamoDB table
//
//	STORAGE_URL - Storage connection string (one of):
//	              - "memory://"                        - In-memory storage (default)
//	              - "s3://bucket?region=us-east-1"     - S3 storage; extra query
//	                params: endpoint, path_style=true, create_bucket=true
//
// Use programmatic config for credentials and encryption options.
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyRecordsEnv(prefix, c); err != nil {
			return err
		}
		return applyStorageEnv(prefix, c)
	}
}

func applyRecordsEnv(prefix string, c *ServerConfig) error {
	recordsURL, ok := lookupEnv(prefix, "RECORDS_URL")
	if !ok || recordsURL == "" || recordsURL == "memory" {
		c.RecordStoreType = "memory"
		return nil
	}

	u, err := url.Parse(recordsURL)
	if err != nil {
		return fmt.Errorf("invalid RECORDS_URL: %w", err)
	}
	if u.Scheme != "dynamodb" {
		return fmt.Errorf("unsupported RECORDS_URL scheme: %s (use 'memory' or 'dynamodb://TABLE')", u.Scheme)
	}

	table := u.Host
	if table == "" {
		table = strings.TrimPrefix(u.Path, "/")
	}
	if table == "" {
		return fmt.Errorf("RECORDS_URL is missing a table name")
	}

	c.RecordStoreType = "dynamodb"
	c.DynamoTable = table
	c.DynamoRegion = u.Query().Get("region")
	return nil
}

func applyStorageEnv(prefix string, c *ServerConfig) error {
	storageURL, ok := lookupEnv(prefix, "STORAGE_URL")
	if !ok || storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.StorageType = "memory"
		return nil
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Scheme != "s3" {
		return fmt.Errorf("unsupported STORAGE_URL scheme: %s (use 'memory://' or 's3://bucket')", u.Scheme)
	}

	query := u.Query()
	c.StorageType = "s3"
	c.S3.Bucket = u.Host
	c.S3.Region = query.Get("region")
	c.S3.Endpoint = query.Get("endpoint")
	c.S3.UsePathStyle = query.Get("path_style") == "true"
	c.S3.CreateBucketIfNotExist = query.Get("create_bucket") == "true"
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	if prefix != "" {
		if v, ok := os.LookupEnv(prefix + key); ok {
			return v, true
		}
	}
	return os.LookupEnv(key)
}
