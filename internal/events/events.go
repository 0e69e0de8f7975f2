// Package events carries vote and comment activity to subscribers: an
// in-process hub feeding websocket clients and, optionally, a Kafka topic.
package events

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	EventVoted          EventType = "voted"
	EventCommentAdded   EventType = "comment_added"
	EventCommentUpvoted EventType = "comment_upvoted"
	EventCommentDeleted EventType = "comment_deleted"
	EventCreated        EventType = "created"
	EventDeleted        EventType = "deleted"
)

type Event struct {
	Type       EventType `json:"type"`
	Collection string    `json:"collection"`
	EntityID   string    `json:"entityId"`
	CommentID  string    `json:"commentId,omitempty"`
	UserUID    int64     `json:"userUID"`
	Score      int       `json:"score"`
	Upvotes    int       `json:"upvotes"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key identifies the subject of an event. Events with equal keys supersede
// each other while waiting in the dispatcher.
func (e Event) Key() string {
	return string(e.Type) + ":" + e.Collection + ":" + e.EntityID + ":" + e.CommentID
}

// Publisher delivers a batch of events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events ...Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
