package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lazuli-inc/pricewatch"
)

func main() {
	var (
		mode     = flag.String("mode", "serve", "serve, full, fast, refresh or export")
		site     = flag.String("site", "", "competitor site name (non-serve modes)")
		url      = flag.String("url", "", "competitor entry URL (non-serve modes)")
		addr     = flag.String("addr", ":8080", "listen address for serve mode")
		mongoUri = flag.String("mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection string")
		database = flag.String("database", os.Getenv("MONGO_DATABASE"), "MongoDB database name")
	)
	flag.Parse()

	if *mode == "serve" {
		log.Printf("listening on %s", *addr)
		if err := http.ListenAndServe(*addr, pricewatch.NewRouter()); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *site == "" || *url == "" {
		log.Fatal("-site and -url are required outside serve mode")
	}
	if *mongoUri == "" || *database == "" {
		log.Fatal("-mongo-uri and -database are required outside serve mode")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := pricewatch.NewMongoStore(ctx, *mongoUri, *database)
	if err != nil {
		log.Fatalf("store unavailable: %v", err)
	}
	defer store.Close(context.Background())

	app, err := pricewatch.NewCrawler(*site, *url, store)
	if err != nil {
		log.Fatal(err)
	}

	if *mode == "export" {
		path, err := app.ExportCSV(ctx)
		if err != nil {
			log.Fatalf("export failed: %v", err)
		}
		fmt.Println(path)
		return
	}

	report, err := app.Run(ctx, pricewatch.RunMode(*mode))
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	fmt.Printf("%s: processed=%d errors=%d history=%d movements=%d\n",
		report.Mode, report.Processed,
		report.NavigationErrors+report.ExtractionErrors,
		report.HistoryEvents, report.MovementEvents)
}
