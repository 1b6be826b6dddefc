package pricewatch

import (
	"context"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/compute/metadata"
)

// PageArchiveRow is one navigated page's raw markup, partitioned by the
// created_at field.
type PageArchiveRow struct {
	Site      string    `bigquery:"site"`
	URL       string    `bigquery:"url"`
	HTMLData  string    `bigquery:"html_data"`
	CreatedAt time.Time `bigquery:"created_at"`
}

// htmlArchiver streams every navigated page's markup to a BigQuery table so
// extraction regressions can be replayed against real snapshots. All
// failures are logged and swallowed; archiving never affects the run.
type htmlArchiver struct {
	client  *bigquery.Client
	dataset string
	table   string
	site    string
	logger  *defaultLogger
}

func newHtmlArchiver(ctx context.Context, config *configService, logger *defaultLogger, site string) *htmlArchiver {
	gcpServiceAccount := config.EnvString("GCP_SERVICE_ACCOUNT", "service-account-stg.json")
	dataset := config.GetString("BIGQUERY_DATASET")
	table := config.GetString("BIGQUERY_TABLE")

	projectID, err := metadata.ProjectID()
	if err != nil {
		logger.Error("html archive disabled, no project ID: %v", err)
		return nil
	}
	if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", gcpServiceAccount); err != nil {
		logger.Error("html archive disabled: %v", err)
		return nil
	}

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		logger.Error("html archive disabled, client init failed: %v", err)
		return nil
	}

	return &htmlArchiver{
		client:  client,
		dataset: dataset,
		table:   table,
		site:    site,
		logger:  logger,
	}
}

func (a *htmlArchiver) archive(ctx context.Context, url, html string) {
	if a == nil || html == "" {
		return
	}
	inserter := a.client.Dataset(a.dataset).Table(a.table).Inserter()
	rows := []*PageArchiveRow{{
		Site:      a.site,
		URL:       url,
		HTMLData:  html,
		CreatedAt: time.Now(),
	}}
	if err := inserter.Put(ctx, rows); err != nil {
		a.logger.Error("html archive insert failed for %s: %v", url, err)
	}
}

func (a *htmlArchiver) close() {
	if a == nil {
		return
	}
	if err := a.client.Close(); err != nil {
		a.logger.Error("closing bigquery client: %v", err)
	}
}
