// Package usersync reacts to identity-provider lifecycle events. Handlers
// are idempotent: redelivery, replay after a crash, or a dedup cache miss
// must all converge on the same state.
package usersync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-shop-backend/internal/events"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/ariefcatur/go-shop-backend/internal/users"
)

type UserStore interface {
	Upsert(ctx context.Context, externalID, name, email, imageURL string) (users.User, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

type Service struct {
	Store       UserStore
	Redis       *redis.Client
	ServiceName string
}

// HandleUserEvent is installed as the consumer handler for the lifecycle
// topic.
func (s *Service) HandleUserEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	switch env.EventType {
	case events.EventUserCreated, events.EventUserDeleted:
	default:
		return nil // ignore
	}

	// dedup is a fast path only; the store operations below are idempotent
	// on their own, so a cache miss after redelivery is harmless
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "usersync", env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	switch env.EventType {
	case events.EventUserCreated:
		p, err := kafkax.UnwrapPayload[events.UserCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		u, err := s.Store.Upsert(ctx, p.ExternalID, displayName(p.FirstName, p.LastName), p.Email, p.ImageURL)
		if err != nil {
			return err
		}
		slog.Info("user synced", "external_id", p.ExternalID, "user_id", u.ID)
		return nil

	case events.EventUserDeleted:
		p, err := kafkax.UnwrapPayload[events.UserDeletedPayload](env.Payload)
		if err != nil {
			return err
		}
		if err := s.Store.DeleteByExternalID(ctx, p.ExternalID); err != nil {
			return err
		}
		slog.Info("user removed", "external_id", p.ExternalID)
		return nil
	}
	return nil
}

func displayName(first, last string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return "User"
	}
	return name
}
