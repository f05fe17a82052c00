package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"coffeecart/internal/config"
	"coffeecart/internal/db"
	"coffeecart/internal/domain"
	"coffeecart/internal/importer"
	"coffeecart/internal/repository/catalog"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath string
		kindName string
	)
	flag.StringVar(&filePath, "file", "", "Path to the catalog CSV file")
	flag.StringVar(&kindName, "kind", "product", "Kind for rows without a kind column (product or supply)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	kind, err := domain.ParseItemKind(kindName)
	if err != nil {
		log.Fatalf("invalid -kind: %v", err)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, catalog.NewPostgres(pool, zap.NewNop()), kind, cfg.Currency)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed after %d rows: %v", count, err)
	}

	fmt.Printf("Imported %d catalog items in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
