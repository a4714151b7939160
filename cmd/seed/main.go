// Package main provides a tool to seed the database with development data.
//
// It creates a dev user (unless one exists) and fills their library with
// books across every reading status, plausible status history and a few
// memos, so the API has something to show during development.
//
// Usage:
//
//	DB_PATH=~/BookMemo/data/db go run ./cmd/seed
//	DB_PATH=~/BookMemo/data/db go run ./cmd/seed --email me@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nistake0/bookmemo-server/internal/auth"
	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/id"
	"github.com/nistake0/bookmemo-server/internal/store"
)

var (
	email    = flag.String("email", "dev@example.com", "Email of the user to seed data for (created if missing)")
	password = flag.String("password", "devpass123", "Password for a newly created user")
)

// seedBook is one book to create, with a status trail leading to its
// current state. Offsets are days before now, oldest first.
type seedBook struct {
	title     string
	authors   []string
	publisher string
	year      string
	isbn      string
	tags      []string
	trail     []seedStatus
	memos     []seedMemo
}

type seedStatus struct {
	status  domain.ReadingStatus
	daysAgo int
}

type seedMemo struct {
	text    string
	comment string
	page    int
	rating  int
	tags    []string
}

var seedBooks = []seedBook{
	{
		title:     "こころ",
		authors:   []string{"夏目漱石"},
		publisher: "新潮社",
		year:      "1914",
		tags:      []string{"日本文学", "名作"},
		trail: []seedStatus{
			{domain.StatusTsundoku, 90},
			{domain.StatusReading, 60},
			{domain.StatusFinished, 45},
		},
		memos: []seedMemo{
			{
				text:   "精神的に向上心のないものは馬鹿だ",
				page:   112,
				rating: 5,
				tags:   []string{"名言"},
			},
			{
				text:    "私はその人を常に先生と呼んでいた。",
				comment: "書き出しから引き込まれる",
				page:    1,
				tags:    []string{"冒頭"},
			},
		},
	},
	{
		title:     "ソフトウェア設計のトレードオフと誤り",
		authors:   []string{"Tomasz Lelek", "Jon Skeet"},
		publisher: "オライリー・ジャパン",
		year:      "2023",
		tags:      []string{"技術書", "設計"},
		trail: []seedStatus{
			{domain.StatusTsundoku, 30},
			{domain.StatusReading, 7},
		},
		memos: []seedMemo{
			{
				text:    "日付と時刻の扱いはどの章より先に読むべき",
				page:    201,
				comment: "7章",
			},
		},
	},
	{
		title:     "銀河鉄道の夜",
		authors:   []string{"宮沢賢治"},
		publisher: "新潮社",
		year:      "1934",
		tags:      []string{"日本文学", "児童文学"},
		trail: []seedStatus{
			{domain.StatusTsundoku, 400},
			{domain.StatusReading, 380},
			{domain.StatusFinished, 370},
			{domain.StatusRereading, 14},
			{domain.StatusFinished, 3},
		},
		memos: []seedMemo{
			{
				text:   "ほんとうのさいわいは一体何だろう",
				page:   88,
				rating: 5,
			},
		},
	},
	{
		title:     "失われた時を求めて 1",
		authors:   []string{"マルセル・プルースト"},
		publisher: "岩波書店",
		year:      "2010",
		tags:      []string{"海外文学", "大長編"},
		trail: []seedStatus{
			{domain.StatusTsundoku, 200},
		},
	},
	{
		title:     "プログラミング言語Go",
		authors:   []string{"Alan A. A. Donovan", "Brian W. Kernighan"},
		publisher: "丸善出版",
		year:      "2016",
		isbn:      "9784621300251",
		tags:      []string{"技術書", "Go"},
		trail: []seedStatus{
			{domain.StatusTsundoku, 800},
			{domain.StatusReading, 700},
			{domain.StatusFinished, 650},
		},
	},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/BookMemo/data/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	user, err := ensureUser(ctx, s)
	if err != nil {
		log.Fatalf("Failed to ensure user: %v", err)
	}
	fmt.Printf("Seeding library for %s (%s)\n", user.DisplayName, user.Email)

	created := 0
	for _, sb := range seedBooks {
		if err := createBook(ctx, s, user.ID, sb); err != nil {
			log.Printf("  Failed to create %q: %v", sb.title, err)
			continue
		}
		created++
		fmt.Printf("  Created: %s (%s)\n", sb.title, sb.trail[len(sb.trail)-1].status)
	}

	fmt.Printf("\nSeeding complete: %d books\n", created)
}

// ensureUser returns the user with the configured email, creating them when
// the database has no such user yet.
func ensureUser(ctx context.Context, s *store.Store) (*domain.User, error) {
	if existing, err := s.GetUserByEmail(ctx, *email); err == nil {
		return existing, nil
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        *email,
		PasswordHash: hash,
		DisplayName:  "開発用ユーザー",
		// The first user on an instance is the root user.
		IsRoot: len(users) == 0,
	}
	user.ID = id.MustGenerate("usr")
	user.InitTimestamps()

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	fmt.Printf("Created user %s (password: %s)\n", *email, *password)
	return user, nil
}

func createBook(ctx context.Context, s *store.Store, userID string, sb seedBook) error {
	now := time.Now()
	first := sb.trail[0]
	last := sb.trail[len(sb.trail)-1]

	book := &domain.Book{
		UserID:    userID,
		ISBN:      sb.isbn,
		Title:     sb.title,
		Authors:   sb.authors,
		Publisher: sb.publisher,
		Tags:      sb.tags,
		Status:    first.status,
	}
	book.PublishYear = sb.year
	book.ID = id.MustGenerate("book")
	book.CreatedAt = now.AddDate(0, 0, -first.daysAgo)
	book.UpdatedAt = book.CreatedAt
	book.SetStatus(last.status, now.AddDate(0, 0, -last.daysAgo))

	if err := s.CreateBook(ctx, book); err != nil {
		return err
	}

	previous := domain.ReadingStatus("")
	for _, st := range sb.trail {
		entry := domain.NewStatusHistoryEntry(
			id.MustGenerate("hist"), book.ID, userID,
			st.status, previous,
			now.AddDate(0, 0, -st.daysAgo), false,
		)
		if err := s.AppendHistoryEntry(ctx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		previous = st.status
	}

	for _, sm := range sb.memos {
		memo := domain.NewMemo(id.MustGenerate("memo"), book.ID, userID, sm.text)
		memo.Comment = sm.comment
		memo.Page = sm.page
		memo.Rating = sm.rating
		memo.Tags = sm.tags
		if err := s.CreateMemo(ctx, memo); err != nil {
			return fmt.Errorf("create memo: %w", err)
		}
	}

	return nil
}
