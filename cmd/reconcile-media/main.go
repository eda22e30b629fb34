// cmd/reconcile-media/main.go
// One-shot tool that resets every media asset's visibility to match its
// post's state. Run it after clearing moderation or stickiness by hand.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"Curbside/internal/core/media"
	"Curbside/internal/core/posts"
	postgresRepo "Curbside/internal/db/postgres"
)

func main() {
	batch := flag.Int("batch", 200, "posts per page")
	flag.Parse()

	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	log.Printf("Connecting to database...")
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := postgresRepo.NewStore(db)
	checked, err := reconcile(context.Background(), store, *batch)
	if err != nil {
		log.Fatalf("Reconcile stopped after %d posts: %v", checked, err)
	}
	log.Printf("Done: checked %d posts", checked)
}

// reconcile walks every post by id and sets its media visibility inside a
// transaction holding the post row
func reconcile(ctx context.Context, store posts.Store, batch int) (int, error) {
	checked := 0
	var afterID int64
	for {
		page, err := store.Posts().ListAll(ctx, afterID, batch)
		if err != nil {
			return checked, err
		}
		if len(page) == 0 {
			return checked, nil
		}

		for _, p := range page {
			var vis *media.VisibilityManager
			err := store.WithTx(ctx, func(r posts.Repositories) error {
				locked, err := r.Posts().GetByIDForUpdate(ctx, p.ID)
				if err != nil {
					return err
				}
				vis = media.NewVisibilityManager(r.Media())
				if locked.IsPublic() {
					return vis.Publicize(ctx, locked.ID)
				}
				return vis.Privatize(ctx, locked.ID)
			})
			if err != nil {
				return checked, err
			}
			vis.RecordChanges()
			checked++
			afterID = p.ID
		}
	}
}
