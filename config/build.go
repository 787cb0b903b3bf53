package config

import (
	"context"
	"fmt"

	"github.com/nicolagi/shopping"
	"github.com/nicolagi/shopping/blob"
	"github.com/nicolagi/shopping/blob/s3"
)

// NewCategorizer builds the categorizer described by the categorizer section.
func (c *Config) NewCategorizer() (*shopping.Categorizer, error) {
	policy, err := shopping.ParseMatchPolicy(c.Categorizer.Policy)
	if err != nil {
		return nil, err
	}
	opts := []shopping.CategorizerOption{
		shopping.WithPolicy(policy),
		shopping.WithThreshold(c.Categorizer.Threshold),
		shopping.WithDefaultCategory(c.Categorizer.Default),
	}
	if len(c.Categorizer.Rules) > 0 {
		rules := make([]shopping.Rule, 0, len(c.Categorizer.Rules))
		for _, r := range c.Categorizer.Rules {
			rules = append(rules, shopping.Rule{Category: r.Category, Keywords: r.Keywords})
		}
		opts = append(opts, shopping.WithRules(rules))
	}
	return shopping.NewCategorizer(opts...), nil
}

// OpenBackend opens the list storage. The returned function releases it.
func (c *Config) OpenBackend() (shopping.Backend, func() error, error) {
	switch c.Store.Backend {
	case "sqlite":
		b, err := shopping.OpenSQLiteBackend(c.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return shopping.NewFileBackend(c.DataFile), func() error { return nil }, nil
	}
}

// NewBlobStore opens the store archived lists are written to.
func (c *Config) NewBlobStore(ctx context.Context) (blob.Store, error) {
	switch blob.Driver(c.Archive.Driver) {
	case blob.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    c.Archive.S3.Bucket,
			Region:    c.Archive.S3.Region,
			Endpoint:  c.Archive.S3.Endpoint,
			PathStyle: c.Archive.S3.PathStyle,
		})
	case blob.DriverMemory:
		return blob.NewMemory(), nil
	default:
		return blob.NewFS(c.Archive.Dir)
	}
}

// NewService wires backend, categorizer and archiver. The returned function releases the backend.
func (c *Config) NewService(ctx context.Context) (*shopping.Service, func() error, error) {
	categorizer, err := c.NewCategorizer()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.NewBlobStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("archive store: %w", err)
	}
	backend, closeFn, err := c.OpenBackend()
	if err != nil {
		return nil, nil, err
	}
	opts := []shopping.ServiceOption{
		shopping.WithCategorizer(categorizer),
		shopping.WithArchiver(shopping.NewArchiver(store, c.Archive.Prefix)),
	}
	if c.Store.LastWriterWins {
		opts = append(opts, shopping.WithLastWriterWins())
	}
	s, err := shopping.NewService(backend, opts...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return s, closeFn, nil
}
