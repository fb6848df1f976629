// Package notifications publishes editorial events to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/redis/go-redis/v9"
)

// PostsChannel carries post lifecycle events.
const PostsChannel = "events:posts"

// EventPostPublished is emitted after a Publish transition is persisted.
const EventPostPublished = "post.published"

// PostEvent is the JSON payload published on PostsChannel.
type PostEvent struct {
	Type      string     `json:"type"`
	PostID    uint       `json:"post_id"`
	AuthorID  uint       `json:"author_id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Published *time.Time `json:"published,omitempty"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PostPublished announces that post has been published.
func (n *Notifier) PostPublished(ctx context.Context, post *models.Post) error {
	return n.publish(ctx, PostEvent{
		Type:      EventPostPublished,
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		Slug:      post.Slug,
		Published: post.Published,
	})
}

func (n *Notifier) publish(ctx context.Context, ev PostEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, PostsChannel, string(payload)).Err()
}

// Subscribe delivers decoded events from PostsChannel to onEvent until ctx is
// cancelled. Malformed payloads are logged and skipped.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(PostEvent)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PostsChannel)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", PostsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev PostEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("Dropping malformed post event", slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in post event handler",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
