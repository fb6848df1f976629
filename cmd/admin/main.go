// Package main provides back-office management utilities for Quill.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"quill/internal/bootstrap"
	"quill/internal/config"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/service"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  admin create-staff -username <name> -email <email> [-password <pw>]  - Create a staff user")
	fmt.Println("  admin publish <post_id>                                             - Publish a post now")
	fmt.Println("  admin list-drafts [-limit N] [-topic slug] [-author id]             - List draft posts")
	fmt.Println("  admin watch                                                         - Print post events as they happen")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ServiceName: "quill-admin"})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	postRepo := repository.NewPostRepository(rt.DB)
	topicRepo := repository.NewTopicRepository(rt.DB)
	notifier := notifications.NewNotifier(rt.Redis)
	posts := service.NewPostService(postRepo, topicRepo, notifier)
	users := service.NewUserService(repository.NewUserRepository(rt.DB))

	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "create-staff":
		createStaff(ctx, users, args)
	case "publish":
		if len(args) < 1 {
			fmt.Println("Usage: admin publish <post_id>")
			os.Exit(1)
		}
		publish(ctx, posts, args[0])
	case "list-drafts":
		listDrafts(ctx, posts, args)
	case "watch":
		if rt.Redis == nil {
			log.Fatal("watch requires a reachable Redis (REDIS_URL)")
		}
		watch(notifier)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func createStaff(ctx context.Context, users *service.UserService, args []string) {
	fs := flag.NewFlagSet("create-staff", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", os.Getenv("QUILL_STAFF_PASSWORD"), "Password (defaults to $QUILL_STAFF_PASSWORD)")
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	_ = fs.Parse(args)

	user, err := users.CreateStaff(ctx, service.CreateStaffInput{
		Username:  *username,
		Email:     *email,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		log.Fatalf("Failed to create staff user: %v", err)
	}
	fmt.Printf("Created staff user %s (ID: %d)\n", user.Username, user.ID)
}

func publish(ctx context.Context, posts *service.PostService, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil || id == 0 {
		log.Fatalf("Invalid post ID %q", rawID)
	}

	post, err := posts.PublishPost(ctx, uint(id))
	if err != nil {
		if repository.IsNotFound(err) {
			fmt.Printf("Post with ID %d not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Failed to publish post: %v", err)
	}
	fmt.Printf("%s %q (ID: %d) at %s\n", post.Status.Label(), post.Title, post.ID, post.Published.UTC().Format("2006-01-02 15:04:05 MST"))
}

func listDrafts(ctx context.Context, posts *service.PostService, args []string) {
	fs := flag.NewFlagSet("list-drafts", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum drafts to list")
	topic := fs.String("topic", "", "Only drafts tagged with this topic slug")
	author := fs.Uint("author", 0, "Only drafts written by this user ID")
	_ = fs.Parse(args)

	page, err := posts.ListDrafts(ctx, service.ListPostsInput{Limit: *limit, Topic: *topic, AuthorID: *author})
	if err != nil {
		log.Fatalf("Failed to list drafts: %v", err)
	}
	if len(page.Posts) == 0 {
		fmt.Println("No drafts")
		return
	}

	fmt.Printf("Drafts (%d of %d):\n", len(page.Posts), page.Total)
	for _, p := range page.Posts {
		fmt.Printf("ID: %d | %s | %s | by %s | created %s\n",
			p.ID, p.Status.Label(), p.Title, p.Author.FullName(), p.Created.UTC().Format("2006-01-02"))
	}
}

func watch(notifier *notifications.Notifier) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := notifier.Subscribe(ctx, func(ev notifications.PostEvent) {
		fmt.Printf("%s post=%d author=%d slug=%s title=%q\n", ev.Type, ev.PostID, ev.AuthorID, ev.Slug, ev.Title)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", notifications.PostsChannel)
	<-ctx.Done()
}
