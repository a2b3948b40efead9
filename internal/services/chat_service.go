// Package services – ChatService
//
// ChatService relays one conversation turn between two existing characters
// through the injected Generator and appends the reply to the pair's chat
// record. The pair is unordered: Alice/Bob and Bob/Alice share one record.
//
// An optional idempotency key makes Exchange safe to retry. The key is
// claimed for the pair before the reply is generated. A key already answered
// within IdempotencyTTL replays the stored reply without generating or
// appending again. A key still claimed by another request is reported as
// in progress.
//
// Observability: public methods are OpenTelemetry-instrumented and exchange
// outcomes are counted in chat_exchanges_total.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/character-chat-backend/internal/domain"
	"github.com/tbourn/character-chat-backend/internal/repo"
	"github.com/tbourn/character-chat-backend/internal/utils"
)

// ChatInput is a chat exchange request.
type ChatInput struct {
	Character1     CharacterInput
	Character2     CharacterInput
	Conversation   string
	JudgeFeedback  string
	IdempotencyKey string // optional
}

// ChatResult is the outcome of a successful exchange.
type ChatResult struct {
	Message  domain.Message
	Replayed bool
}

// ChatRepo is the store surface ChatService depends on.
type ChatRepo interface {
	CharacterStore
	ChatStore
	ReplayStore
}

// ChatService runs chat exchanges and reads chat history.
type ChatService struct {
	Store          ChatRepo
	Generator      Generator
	IdempotencyTTL time.Duration
	// ClaimLease bounds how long an unanswered claim blocks its key, for
	// example after a crash during generation.
	ClaimLease time.Duration

	// Now returns the current time; defaults to time.Now in UTC.
	Now func() time.Time
}

// NewChatService constructs a ChatService with a 24h replay window.
func NewChatService(store ChatRepo, gen Generator) *ChatService {
	return &ChatService{
		Store:          store,
		Generator:      gen,
		IdempotencyTTL: 24 * time.Hour,
		ClaimLease:     5 * time.Minute,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Exchange validates in, checks that both characters exist, generates a
// reply and appends it to the pair's record as a message from character1.
func (s *ChatService) Exchange(ctx context.Context, in ChatInput) (*ChatResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Exchange",
		trace.WithAttributes(
			attribute.String("character1.name", in.Character1.Name),
			attribute.String("character2.name", in.Character2.Name),
			attribute.Bool("idempotent", in.IdempotencyKey != ""),
		),
	)
	defer span.End()

	details := map[string]any{}
	in.Character1.validate("character1.", details)
	in.Character2.validate("character2.", details)
	if in.Conversation == "" {
		details["conversation"] = "must not be empty"
	}
	if len(details) > 0 {
		chatExchanges.WithLabelValues(outcomeInvalid).Inc()
		return nil, ValidationError(MsgValidation, details)
	}

	c1, c2 := in.Character1.toDomain(), in.Character2.toDomain()
	key := domain.PairKeyFor(c1.Name, c2.Name)

	if in.IdempotencyKey != "" {
		if res, err := s.replay(ctx, span, key, in.IdempotencyKey); res != nil || err != nil {
			return res, err
		}
	}

	exists1, err := s.exists(ctx, c1.Name)
	if err != nil {
		return nil, s.fail(span, err)
	}
	exists2, err := s.exists(ctx, c2.Name)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if !exists1 || !exists2 {
		missing := make([]string, 0, 2)
		if !exists1 {
			missing = append(missing, c1.Name)
		}
		if !exists2 && c2.Name != c1.Name {
			missing = append(missing, c2.Name)
		}
		chatExchanges.WithLabelValues(outcomeNotFound).Inc()
		return nil, NotFoundError(MsgCharactersMissing, map[string]any{
			"character1_exists": exists1,
			"character2_exists": exists2,
			"missing":           missing,
		})
	}

	release := func() {}
	if in.IdempotencyKey != "" {
		err := s.Store.ClaimReplay(ctx, key, in.IdempotencyKey, s.now(), s.claimLease())
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			// Lost the claim: answered meanwhile, or still in flight.
			res, err := s.replay(ctx, span, key, in.IdempotencyKey)
			if res != nil || err != nil {
				return res, err
			}
			return nil, s.inProgress(in.IdempotencyKey)
		case err != nil:
			return nil, s.fail(span, err)
		}
		release = func() {
			// the request context may already be cancelled
			if err := s.Store.ReleaseReplay(context.WithoutCancel(ctx), key, in.IdempotencyKey); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("release replay claim failed")
			}
		}
	}

	start := time.Now()
	reply, err := s.Generator.Generate(ctx, c1, c2, in.Conversation, in.JudgeFeedback)
	generationLat.Observe(time.Since(start).Seconds())
	if err != nil {
		release()
		return nil, s.fail(span, err)
	}

	msg := &domain.Message{
		Sender:    c1.Name,
		Text:      reply,
		Timestamp: s.now(),
	}
	if err := s.Store.AppendMessage(ctx, key, msg); err != nil {
		release()
		return nil, s.fail(span, err)
	}

	if in.IdempotencyKey != "" {
		// The reply is already stored. Until the lease runs out, retries of
		// an uncompleted claim are answered as in progress.
		if err := s.Store.CompleteReplay(ctx, key, in.IdempotencyKey, msg, s.now(), s.IdempotencyTTL); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("complete replay failed")
		}
	}

	chatExchanges.WithLabelValues(outcomeSuccess).Inc()
	return &ChatResult{Message: *msg}, nil
}

// History returns one page of the pair's messages in append order along with
// the total count. A pair that never chatted has an empty history.
func (s *ChatService) History(ctx context.Context, a, b string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("character1.name", a),
			attribute.String("character2.name", b),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	key := domain.PairKeyFor(a, b)

	total, err := s.Store.CountMessages(ctx, key)
	if err != nil {
		return nil, 0, InternalError(MsgUnexpected, err)
	}
	offset, inRange := utils.PageOffset(page, pageSize, total)
	if !inRange {
		return []domain.Message{}, total, nil
	}

	items, err := s.Store.ListMessagesPage(ctx, key, offset, pageSize)
	if err != nil {
		return nil, 0, InternalError(MsgUnexpected, err)
	}
	return items, total, nil
}

// Stats returns the message count and latest message time for the pair.
func (s *ChatService) Stats(ctx context.Context, a, b string) (int64, *time.Time, error) {
	count, last, err := s.Store.MessagesStats(ctx, domain.PairKeyFor(a, b))
	if err != nil {
		return 0, nil, InternalError(MsgUnexpected, err)
	}
	return count, last, nil
}

// replay returns the stored answer for idemKey, or nil when the key is
// unknown. A claimed but unanswered key is an in-progress error.
func (s *ChatService) replay(ctx context.Context, span trace.Span, key domain.PairKey, idemKey string) (*ChatResult, error) {
	prev, err := s.Store.GetReplay(ctx, key, idemKey, s.now())
	switch {
	case err == nil:
		chatExchanges.WithLabelValues(outcomeReplayed).Inc()
		return &ChatResult{Message: *prev, Replayed: true}, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, nil
	case errors.Is(err, repo.ErrReplayPending):
		return nil, s.inProgress(idemKey)
	default:
		return nil, s.fail(span, err)
	}
}

func (s *ChatService) inProgress(idemKey string) *Error {
	chatExchanges.WithLabelValues(outcomeInProgress).Inc()
	return InProgressError(MsgRequestInProgress, map[string]any{"idempotency_key": idemKey})
}

func (s *ChatService) claimLease() time.Duration {
	lease := s.ClaimLease
	if lease <= 0 || (s.IdempotencyTTL > 0 && lease > s.IdempotencyTTL) {
		lease = s.IdempotencyTTL
	}
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return lease
}

func (s *ChatService) exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Store.FindCharacter(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *ChatService) fail(span trace.Span, err error) *Error {
	span.RecordError(err)
	chatExchanges.WithLabelValues(outcomeError).Inc()
	return InternalError(MsgUnexpected, err)
}
