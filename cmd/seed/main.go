package main

import (
	"context"
	"flag"
	"log"

	"github.com/json2x/chatapp-v2-api/internal/store"
)

type sampleTurn struct {
	role    string
	content string
}

type sampleConversation struct {
	title        string
	model        string
	userID       string
	systemPrompt string
	turns        []sampleTurn
}

var samples = []sampleConversation{
	{
		title:  "Getting started with Go modules",
		model:  "gpt-4o-mini",
		userID: "demo-user",
		turns: []sampleTurn{
			{"user", "How do I create a new Go module?"},
			{"assistant", "Run `go mod init <module-path>` in your project directory. This creates a go.mod file that tracks your dependencies."},
			{"user", "And how do I add a dependency?"},
			{"assistant", "Import the package in your code and run `go mod tidy`, or fetch it explicitly with `go get <package>`."},
		},
	},
	{
		title:        "Trip planning assistant",
		model:        "claude-3-5-haiku-20241022",
		userID:       "demo-user",
		systemPrompt: "You are a concise travel planning assistant.",
		turns: []sampleTurn{
			{"user", "Suggest a 3-day itinerary for Kyoto."},
			{"assistant", "Day 1: Fushimi Inari and Gion. Day 2: Arashiyama bamboo grove and the Golden Pavilion. Day 3: Nijo Castle and the Philosopher's Path."},
		},
	},
	{
		title:  "SQL query help",
		model:  "gpt-4o",
		userID: "second-user",
		turns: []sampleTurn{
			{"user", "Why is my LEFT JOIN returning duplicate rows?"},
			{"assistant", "Most likely the join key is not unique on the right side. Each matching right-side row produces one output row, so aggregate or deduplicate before joining."},
		},
	},
}

func main() {
	dbPath := flag.String("db", "chatapp-v2.db", "path to the SQLite database to seed")
	flag.Parse()

	st, err := store.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("[seed] failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for _, sample := range samples {
		conv := store.NewConversation{
			Title:  sample.title,
			Model:  sample.model,
			UserID: &sample.userID,
		}
		if sample.systemPrompt != "" {
			prompt := sample.systemPrompt
			conv.SystemPrompt = &prompt
		}

		id, err := st.CreateConversation(ctx, conv)
		if err != nil {
			log.Fatalf("[seed] failed to create conversation %q: %v", sample.title, err)
		}
		for _, turn := range sample.turns {
			msg := store.NewMessage{Role: turn.role, Content: turn.content}
			if turn.role == "assistant" {
				model := sample.model
				msg.Model = &model
			}
			if _, err := st.AppendMessage(ctx, id, msg); err != nil {
				log.Fatalf("[seed] failed to append message to %s: %v", id, err)
			}
		}
		log.Printf("[seed] created conversation %s (%q, %d messages)", id, sample.title, len(sample.turns))
	}
	log.Printf("[seed] done: %d conversations in %s", len(samples), *dbPath)
}
