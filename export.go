package pricewatch

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ExportCSV dumps the competitor's active catalog to a dated CSV under
// storage/data/<site>/ and pushes it to the configured bucket when
// credentials are present. Returns the local file path.
func (app *Crawler) ExportCSV(ctx context.Context) (string, error) {
	entries, err := app.store.FetchActiveEntries(ctx, app.CompetitorID)
	if err != nil {
		return "", err
	}

	dir := filepath.Join("storage", "data", app.Name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	fileName := fmt.Sprintf("%s_catalog.csv", time.Now().Format("2006_01_02"))
	path := filepath.Join(dir, fileName)

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"url", "name", "brand", "sku", "category", "price", "price_pix", "stock", "available", "last_collected_at"}
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for i := range entries {
		e := &entries[i]
		stock := ""
		if e.Stock != nil {
			stock = strconv.Itoa(*e.Stock)
		}
		row := []string{
			e.Url, e.Name, e.Brand, e.Sku, e.Category,
			strconv.FormatFloat(e.Price, 'f', 2, 64),
			strconv.FormatFloat(e.PricePix, 'f', 2, 64),
			stock,
			strconv.FormatBool(e.Available),
			e.LastCollectedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	app.Logger.Info("exported %d entries to %s", len(entries), path)

	if app.Config.EnvString("GCP_CREDENTIALS_PATH") != "" {
		uploadToBucket(app, path, fileName)
	}
	return path, nil
}
