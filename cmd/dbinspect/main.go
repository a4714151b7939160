package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/nistake0/bookmemo-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/BookMemo/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	bookCount := 0
	statusCounts := make(map[domain.ReadingStatus]int)
	memoCount := 0
	historyCount := 0
	shown := 0

	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case strings.HasPrefix(key, "book:"):
				err := item.Value(func(val []byte) error {
					var book domain.Book
					if err := json.Unmarshal(val, &book); err != nil {
						return err
					}

					bookCount++
					statusCounts[book.Status]++

					// Show the first few books in full
					if shown < 5 {
						shown++
						fmt.Printf("Book: %s\n", book.Title)
						fmt.Printf("  ID: %s\n", book.ID)
						fmt.Printf("  Status: %s\n", book.Status)
						fmt.Printf("  Authors: %s\n", strings.Join(book.Authors, ", "))
						fmt.Printf("  Memos: %d\n", book.MemoCount)
						if book.FinishedAt != nil {
							fmt.Printf("  Finished: %s\n", book.FinishedAt.Format("2006-01-02"))
						}
						fmt.Println()
					}
					return nil
				})
				if err != nil {
					log.Printf("Error reading book %s: %v", key, err)
				}
			case strings.HasPrefix(key, "memo:"):
				memoCount++
			case strings.HasPrefix(key, "hist:"):
				historyCount++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total books: %d\n", bookCount)
	for _, status := range domain.AllStatuses() {
		fmt.Printf("  %s: %d\n", status, statusCounts[status])
	}
	fmt.Printf("Total memos: %d\n", memoCount)
	fmt.Printf("Total history entries: %d\n", historyCount)
	if bookCount > 0 {
		fmt.Printf("Average history per book: %.1f\n", float64(historyCount)/float64(bookCount))
	}
}
