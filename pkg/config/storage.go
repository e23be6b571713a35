package config

import (
	"fmt"
	"log"
	"strings"
)

const (
	StorageDriverFile     = "file"
	StorageDriverPostgres = "postgres"

	defaultStorageFilePath = "data/products.json"
)

// StorageConfig selects the product store backend.
type StorageConfig struct {
	Driver string `koanf:"driver"`
	File   struct {
		Path string `koanf:"path"`
	} `koanf:"file"`
}

// String returns a string representation of the StorageConfig.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  storage.driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  storage.file.path: %s\n", c.File.Path))
	return b.String()
}

func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		log.Println("Using default value for storage.driver")
		c.Driver = StorageDriverFile
	}
	switch c.Driver {
	case StorageDriverFile:
		if c.File.Path == "" {
			log.Println("Using default value for storage.file.path")
			c.File.Path = defaultStorageFilePath
		}
	case StorageDriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}
