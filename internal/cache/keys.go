package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix          = "post:%d"
	PostDateSlugKeyPrefix  = "post:%04d-%02d-%02d:%s"
	PublishedFeedKeyPrefix = "posts:published:%d:%d"
	TopicListKey           = "topics:all"

	// publishedFeedPattern matches every cached page of the published feed.
	publishedFeedPattern = "posts:published:*"
)

const (
	PostTTL  = 30 * time.Minute
	FeedTTL  = 2 * time.Minute
	TopicTTL = 10 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// PostDateSlugKey keys the public year/month/day/slug lookup.
func PostDateSlugKey(year, month, day int, slug string) string {
	return fmt.Sprintf(PostDateSlugKeyPrefix, year, month, day, slug)
}

func PublishedFeedKey(limit, offset int) string {
	return fmt.Sprintf(PublishedFeedKeyPrefix, limit, offset)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidatePost drops the detail entries of a post and every feed page.
func InvalidatePost(ctx context.Context, postID uint, dateSlugKey string) {
	keys := []string{PostKey(postID)}
	if dateSlugKey != "" {
		keys = append(keys, dateSlugKey)
	}
	Invalidate(ctx, keys...)
	InvalidatePublishedFeed(ctx)
}

func InvalidatePublishedFeed(ctx context.Context) {
	invalidatePattern(ctx, publishedFeedPattern)
}

func InvalidateTopics(ctx context.Context) {
	Invalidate(ctx, TopicListKey)
}

func invalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}
