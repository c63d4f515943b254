package cron

import (
	"context"
	"fmt"
)

const catalogReloadJobName = "catalog-reload"

type catalogReloader interface {
	Reload(ctx context.Context) (int, error)
}

// CatalogReloadJob re-reads the catalog file so edits show up without a
// restart. A failed reload keeps the previous catalog.
type CatalogReloadJob struct {
	catalog catalogReloader
}

func NewCatalogReloadJob(catalog catalogReloader) (*CatalogReloadJob, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &CatalogReloadJob{catalog: catalog}, nil
}

func (j *CatalogReloadJob) Name() string { return catalogReloadJobName }

func (j *CatalogReloadJob) Run(ctx context.Context) error {
	_, err := j.catalog.Reload(ctx)
	return err
}
