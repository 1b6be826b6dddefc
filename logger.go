package pricewatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/logging"
)

// defaultLogger writes to a per-competitor log file and stdout. When a GCP
// project is configured an additional Cloud Logging sink receives every line.
type defaultLogger struct {
	logger      *log.Logger
	siteName    string
	cloudClient *logging.Client
	cloud       *logging.Logger
}

// newDefaultLogger creates a new instance of defaultLogger.
func newDefaultLogger(config *configService, siteName string) *defaultLogger {
	currentDate := time.Now().Format("2006-01-02")
	directory := filepath.Join("storage", "logs", siteName)
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logFilePath := filepath.Join(directory, currentDate+"_application.log")

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	multiWriter := io.MultiWriter(file, os.Stdout)

	l := &defaultLogger{
		logger:   log.New(multiWriter, "", log.LstdFlags),
		siteName: siteName,
	}

	if projectID := config.EnvString("GCP_PROJECT_ID"); projectID != "" {
		client, err := logging.NewClient(context.Background(), projectID)
		if err != nil {
			l.Error("Failed to create Cloud Logging client: %v", err)
		} else {
			l.cloudClient = client
			l.cloud = client.Logger("pricewatch-" + siteName)
		}
	}

	return l
}

func (l *defaultLogger) send(severity logging.Severity, msg string) {
	if l.cloud != nil {
		l.cloud.Log(logging.Entry{Severity: severity, Payload: msg})
	}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("INFO: %s", msg)
	l.send(logging.Info, msg)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("WARN: %s", msg)
	l.send(logging.Warning, msg)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("ERROR: %s", msg)
	l.send(logging.Error, msg)
}

// Summary is for the handful of lines an operator actually reads per run.
func (l *defaultLogger) Summary(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("SUMMARY: %s", msg)
	l.send(logging.Notice, msg)
}

func (l *defaultLogger) Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.send(logging.Critical, msg)
	l.Close()
	l.logger.Fatalf("FATAL: %s", msg)
}

// Html logs an error and dumps the failing page markup for inspection.
func (l *defaultLogger) Html(html, url, msg string) {
	l.Error("%s", msg)
	if err := l.writePageContentToFile(html, url, msg); err != nil {
		l.logger.Printf("HTML: %v", err)
	}
}

func (l *defaultLogger) Close() {
	if l.cloudClient != nil {
		_ = l.cloudClient.Close()
	}
}

func (l *defaultLogger) writePageContentToFile(html, url, msg string) error {
	if html == "" {
		html = "No Page Content Found"
	}
	html = strings.TrimSpace(msg) + "\n" + html
	html = fmt.Sprintf("<!-- Time: %v \n Page Url: %s -->\n%s", time.Now(), url, html)
	filename := generateFilename(url)
	directory := filepath.Join("storage", "logs", l.siteName, "html")
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		return err
	}
	filePath := filepath.Join(directory, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(html)
	return err
}

// generateFilename generates a filename based on URL and current date.
func generateFilename(rawURL string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalidChars {
		rawURL = strings.ReplaceAll(rawURL, char, "_")
	}

	currentDate := time.Now().Format("2006-01-02")
	return currentDate + "_" + rawURL + ".html"
}
