package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// Key layout:
//
//	character:<name>        JSON document, written with SETNX
//	characters              set of all character names
//	chat:<pair>             hash with the chat record metadata
//	chat:<pair>:messages    list of JSON messages in append order
//	idem:<pair>:<key>       claim marker, then the JSON message, with a TTL
const (
	charactersSetKey = "characters"
	claimMarker      = "claimed"
)

func characterKey(name string) string { return "character:" + name }
func chatKey(key domain.PairKey) string { return "chat:" + string(key) }
func messagesKey(key domain.PairKey) string { return chatKey(key) + ":messages" }
func replayKey(key domain.PairKey, k string) string { return "idem:" + string(key) + ":" + k }

// RedisStore implements the store contract on Redis. Message IDs are the
// 1-based position in the pair's list, which is stable because the list is
// append-only.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis parses url (redis://[:password@]host:port/db), connects and
// verifies the connection with PING.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps client.
func NewRedisStore(client *redis.Client) *RedisStore { return &RedisStore{client: client} }

func (s *RedisStore) FindCharacter(ctx context.Context, name string) (*domain.Character, error) {
	raw, err := s.client.Get(ctx, characterKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c domain.Character
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode character %q: %w", name, err)
	}
	return &c, nil
}

// InsertCharacter stores c unless its name is taken, in which case it returns
// ErrDuplicate. SETNX makes the check and the write a single atomic step.
func (s *RedisStore) InsertCharacter(ctx context.Context, c *domain.Character) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	ok, err := s.client.SetNX(ctx, characterKey(c.Name), raw, 0).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrDuplicate
	}
	if err := s.client.SAdd(ctx, charactersSetKey, c.Name).Err(); err != nil {
		return "", err
	}
	return c.ID, nil
}

// SampleCharacter returns an arbitrary stored character, or ErrNotFound.
func (s *RedisStore) SampleCharacter(ctx context.Context) (*domain.Character, error) {
	name, err := s.client.SRandMember(ctx, charactersSetKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.FindCharacter(ctx, name)
}

// AppendMessage pushes msg onto the pair's list and upserts the chat record
// hash in one MULTI/EXEC transaction.
func (s *RedisStore) AppendMessage(ctx context.Context, key domain.PairKey, msg *domain.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.ChatID = string(key)
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	a, b := key.Names()
	var push *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, chatKey(key), "character_a", a)
		p.HSetNX(ctx, chatKey(key), "character_b", b)
		p.HSetNX(ctx, chatKey(key), "created_at", msg.Timestamp.Format(time.RFC3339Nano))
		p.HSet(ctx, chatKey(key), "updated_at", msg.Timestamp.Format(time.RFC3339Nano))
		push = p.RPush(ctx, messagesKey(key), raw)
		return nil
	})
	if err != nil {
		return err
	}
	msg.ID = uint64(push.Val())
	return nil
}

func (s *RedisStore) CountMessages(ctx context.Context, key domain.PairKey) (int64, error) {
	return s.client.LLen(ctx, messagesKey(key)).Result()
}

func (s *RedisStore) ListMessagesPage(ctx context.Context, key domain.PairKey, offset, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	raws, err := s.client.LRange(ctx, messagesKey(key), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(raws))
	for i, raw := range raws {
		m, err := decodeMessage(raw)
		if err != nil {
			return nil, err
		}
		m.ID = uint64(offset + i + 1)
		out = append(out, *m)
	}
	return out, nil
}

func (s *RedisStore) MessagesStats(ctx context.Context, key domain.PairKey) (int64, *time.Time, error) {
	count, err := s.CountMessages(ctx, key)
	if err != nil || count == 0 {
		return 0, nil, err
	}
	raw, err := s.client.LIndex(ctx, messagesKey(key), -1).Result()
	if err != nil {
		return 0, nil, err
	}
	m, err := decodeMessage(raw)
	if err != nil {
		return 0, nil, err
	}
	return count, &m.Timestamp, nil
}

// GetReplay returns the message stored for idemKey, or ErrReplayPending
// while the key is only claimed. Expiry is enforced by the key TTL, so now
// is not consulted.
func (s *RedisStore) GetReplay(ctx context.Context, key domain.PairKey, idemKey string, _ time.Time) (*domain.Message, error) {
	raw, err := s.client.Get(ctx, replayKey(key, idemKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if raw == claimMarker {
		return nil, ErrReplayPending
	}
	return decodeMessage(raw)
}

// ClaimReplay reserves idemKey with SETNX for lease; ErrDuplicate if the key
// is claimed or answered.
func (s *RedisStore) ClaimReplay(ctx context.Context, key domain.PairKey, idemKey string, _ time.Time, lease time.Duration) error {
	ok, err := s.client.SetNX(ctx, replayKey(key, idemKey), claimMarker, lease).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// CompleteReplay replaces the claim with msg for ttl. ErrNotFound means the
// claim expired first.
func (s *RedisStore) CompleteReplay(ctx context.Context, key domain.PairKey, idemKey string, msg *domain.Message, _ time.Time, ttl time.Duration) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	err = s.client.SetArgs(ctx, replayKey(key, idemKey), raw, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

// ReleaseReplay deletes the key if it still holds the claim. WATCH keeps a
// concurrent completion from being deleted.
func (s *RedisStore) ReleaseReplay(ctx context.Context, key domain.PairKey, idemKey string) error {
	k := replayKey(key, idemKey)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		v, err := tx.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) || (err == nil && v != claimMarker) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, k)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.client.Close() }

// decodeMessage restores a stored message. ChatID is excluded from the JSON
// form, so it is not recovered here.
func decodeMessage(raw string) (*domain.Message, error) {
	var m domain.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &m, nil
}
