// Package main imports books from a Calibre library into a user's BookMemo
// library.
//
// Point it at a Calibre metadata.db and an existing user. Imported books
// start as tsundoku. The import is safe to rerun: books already imported
// are recognized by their Calibre UUID and skipped.
//
// Usage:
//
//	DB_PATH=~/BookMemo/data/db go run ./cmd/import-calibre \
//	    --library ~/Calibre/metadata.db --email me@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nistake0/bookmemo-server/internal/backup/calibre"
	"github.com/nistake0/bookmemo-server/internal/store"
)

var (
	libraryPath = flag.String("library", "", "Path to the Calibre metadata.db (required)")
	userEmail   = flag.String("email", "", "Email of the user to import into (required)")
	dryRun      = flag.Bool("dry-run", false, "Parse and report without writing anything")
)

func main() {
	flag.Parse()

	if *libraryPath == "" || *userEmail == "" {
		flag.Usage()
		os.Exit(2)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/BookMemo/data/db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	lib, err := calibre.Parse(*libraryPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse Calibre library: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Parsed %d books from %s\n", len(lib.Books), *libraryPath)
	if lib.InvalidUUIDs > 0 {
		fmt.Printf("Skipped %d rows with invalid UUIDs\n", lib.InvalidUUIDs)
	}

	if *dryRun {
		for _, b := range lib.Books {
			fmt.Printf("  %s", b.Title)
			if len(b.Authors) > 0 {
				fmt.Printf(" / %s", b.Authors[0])
			}
			fmt.Println()
		}
		return
	}

	st, err := store.New(dbPath, logger, store.NewNoopEmitter())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	user, err := st.GetUserByEmail(ctx, *userEmail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "User %s not found: %v\n", *userEmail, err)
		os.Exit(1)
	}

	importer := calibre.NewImporter(st, logger)
	result, err := importer.Import(ctx, lib, user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nImport finished in %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  Imported: %d\n", result.Imported)
	fmt.Printf("  Skipped:  %d\n", result.Skipped)
	fmt.Printf("  Failed:   %d\n", result.Failed)
	for _, msg := range result.Errors {
		fmt.Printf("    %s\n", msg)
	}

	// The running server rebuilds its search index on next start if needed.
	if result.Imported > 0 {
		fmt.Println("\nRestart the server to pick up the imported books in search.")
	}
}
