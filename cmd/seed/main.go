// Command main runs the database seeder for Quill.
package main

import (
	"flag"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	numAuthors := flag.Int("authors", 5, "Number of authors to create")
	numTopics := flag.Int("topics", -1, "Number of catalogue topics to create (-1 for all)")
	numPosts := flag.Int("posts", 50, "Number of posts to create")
	publishRatio := flag.Float64("publish-ratio", 0.7, "Share of posts that are published (0..1)")
	shouldClean := flag.Bool("clean", false, "Remove posts, topics and non-staff users before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt for seeded users (local use only)")
	rngSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = time based)")
	flag.Parse()

	if *publishRatio < 0 || *publishRatio > 1 {
		log.Fatalf("-publish-ratio must be between 0 and 1, got %v", *publishRatio)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(db, seed.Options{
		NumAuthors:   *numAuthors,
		NumTopics:    *numTopics,
		NumPosts:     *numPosts,
		PublishRatio: *publishRatio,
		ShouldClean:  *shouldClean,
		Factory: seed.FactoryOptions{
			SkipBcrypt: *fast,
			MaxDays:    365,
			Seed:       *rngSeed,
		},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d authors, %d topics, %d published and %d draft posts",
		res.Authors, res.Topics, res.Published, res.Drafts)
	if !*fast {
		log.Printf("All seeded authors have the password: %s", seed.DefaultPassword)
	}
}
