// Package database persists maintenance rules, scans and candidates in a
// sqlite database via gorm.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var _ DB = (*Client)(nil) // Ensure Client implements DB

// Client wraps the gorm.DB instance.
type Client struct {
	db *gorm.DB
}

// New creates a new database connection and performs migrations.
func New(dbpath string) (*Client, error) {
	db, err := gorm.Open(sqlite.Open(dbpath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	client := &Client{db: db}
	if err := client.Migrate(); err != nil {
		return nil, err
	}
	return client, nil
}

// Migrate runs the schema migrations.
func (c *Client) Migrate() error {
	if err := c.db.AutoMigrate(
		&Rule{},
		&Scan{},
		&Candidate{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
