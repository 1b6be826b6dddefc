package pricewatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/option"
)

// uploadToBucket pushes a local export file to the Cloud Storage bucket
// named by PW_EXPORT_BUCKET, under <competitor>/<file>.
func uploadToBucket(app *Crawler, sourceFileName, destinationFileName string) {
	startTime := time.Now()
	bucketName := app.Config.EnvString("PW_EXPORT_BUCKET", "pricewatch_exports")
	destinationFileName = fmt.Sprintf("%s/%s", app.CompetitorID, destinationFileName)
	credentialsPath := app.Config.EnvString("GCP_CREDENTIALS_PATH")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		app.Logger.Error("failed to create storage client: %v", err)
		return
	}
	defer func() {
		if err := client.Close(); err != nil {
			app.Logger.Error("failed to close storage client: %v", err)
		}
	}()

	file, err := os.Open(sourceFileName)
	if err != nil {
		app.Logger.Error("failed to open file %s: %v", sourceFileName, err)
		return
	}
	defer file.Close()

	obj := client.Bucket(bucketName).Object(destinationFileName)
	writer := obj.NewWriter(ctx)

	contentType, err := detectContentType(sourceFileName)
	if err != nil {
		writer.ContentType = "application/octet-stream"
	} else {
		writer.ContentType = contentType
	}

	if _, err := io.Copy(writer, file); err != nil {
		app.Logger.Error("failed to copy file data to bucket %s: %v", bucketName, err)
		writer.Close()
		return
	}
	if err := writer.Close(); err != nil {
		app.Logger.Error("failed to close writer for %s: %v", destinationFileName, err)
		return
	}

	app.Logger.Info("uploaded %s to bucket in %s", sourceFileName, time.Since(startTime))
}

func detectContentType(filePath string) (string, error) {
	mime, err := mimetype.DetectFile(filePath)
	if err != nil {
		return "", err
	}
	return mime.String(), nil
}
