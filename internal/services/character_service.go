// Package services – CharacterService
//
// CharacterService creates and reads character profiles. Input is checked
// against the character rules before the store is touched; names are
// NFC-normalized so canonically equivalent spellings share one record.
//
// Uniqueness is enforced twice: an existence check answers the common
// duplicate case without a write, and the store's unique constraint turns a
// concurrent losing insert into the same ConflictError.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/character-chat-backend/internal/domain"
	"github.com/tbourn/character-chat-backend/internal/repo"
)

// Character field limits.
const (
	NameMaxRunes        = 100
	PersonalityMinRunes = 10
)

// CharacterInput is a character payload as submitted by a client.
type CharacterInput struct {
	Name        string
	Personality string
	Hobbies     []string
}

// toDomain copies the input into a storable Character with a normalized name.
func (in CharacterInput) toDomain() domain.Character {
	hobbies := make([]string, len(in.Hobbies))
	copy(hobbies, in.Hobbies)
	return domain.Character{
		Name:        domain.NormalizeName(in.Name),
		Personality: in.Personality,
		Hobbies:     hobbies,
	}
}

// validate appends rule violations to details, prefixing field names. The
// name limit applies to the normalized form, which is what gets stored; NFC
// can lengthen some scripts.
func (in CharacterInput) validate(prefix string, details map[string]any) {
	n := utf8.RuneCountInString(domain.NormalizeName(in.Name))
	switch {
	case n == 0:
		details[prefix+"name"] = "must not be empty"
	case n > NameMaxRunes:
		details[prefix+"name"] = "must be at most 100 characters"
	}
	if utf8.RuneCountInString(in.Personality) < PersonalityMinRunes {
		details[prefix+"personality"] = "must be at least 10 characters"
	}
	if len(in.Hobbies) == 0 {
		details[prefix+"hobbies"] = "must contain at least one hobby"
		return
	}
	for _, h := range in.Hobbies {
		if strings.TrimSpace(h) == "" {
			details[prefix+"hobbies"] = "all hobbies must be non-empty strings"
			return
		}
	}
}

// CharacterService provides character creation and lookup.
type CharacterService struct {
	Store CharacterStore
}

// NewCharacterService constructs a CharacterService.
func NewCharacterService(store CharacterStore) *CharacterService {
	return &CharacterService{Store: store}
}

// Create validates in, rejects taken names and inserts the character.
// It returns the stored record and its generated id.
func (s *CharacterService) Create(ctx context.Context, in CharacterInput) (*domain.Character, string, error) {
	tr := otel.Tracer("services/CharacterService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("character.name", in.Name)),
	)
	defer span.End()

	details := map[string]any{}
	in.validate("", details)
	if len(details) > 0 {
		return nil, "", ValidationError(MsgValidation, details)
	}

	c := in.toDomain()
	conflict := ConflictError(MsgCharacterExists, map[string]any{"name": c.Name})

	_, err := s.Store.FindCharacter(ctx, c.Name)
	switch {
	case err == nil:
		return nil, "", conflict
	case !errors.Is(err, repo.ErrNotFound):
		span.RecordError(err)
		return nil, "", InternalError(MsgCreateFailed, err)
	}

	id, err := s.Store.InsertCharacter(ctx, &c)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, "", conflict
	}
	if err != nil {
		span.RecordError(err)
		return nil, "", InternalError(MsgCreateFailed, err)
	}

	charactersCreated.Inc()
	return &c, id, nil
}

// Get returns the character stored under name.
func (s *CharacterService) Get(ctx context.Context, name string) (*domain.Character, error) {
	tr := otel.Tracer("services/CharacterService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("character.name", name)),
	)
	defer span.End()

	name = domain.NormalizeName(name)
	c, err := s.Store.FindCharacter(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFoundError(MsgCharacterNotFound, map[string]any{"name": name})
	}
	if err != nil {
		span.RecordError(err)
		return nil, InternalError(MsgUnexpected, err)
	}
	return c, nil
}

// Sample returns any stored character, or nil when there are none.
func (s *CharacterService) Sample(ctx context.Context) (*domain.Character, error) {
	tr := otel.Tracer("services/CharacterService")
	ctx, span := tr.Start(ctx, "Sample")
	defer span.End()

	c, err := s.Store.SampleCharacter(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c, nil
}
