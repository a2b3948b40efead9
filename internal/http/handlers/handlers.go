// Package handlers wires HTTP endpoints to the character and chat services.
//
// Handlers are transport-thin: they bind and validate input, call a service,
// and translate the result into a response.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/character-chat-backend/internal/domain"
	"github.com/tbourn/character-chat-backend/internal/services"
)

// CharacterService defines character operations consumed by HTTP handlers.
type CharacterService interface {
	// Create validates and stores a new character, returning it with its id.
	Create(ctx context.Context, in services.CharacterInput) (*domain.Character, string, error)
	// Get returns the character stored under name.
	Get(ctx context.Context, name string) (*domain.Character, error)
	// Sample returns any stored character, or nil when there are none.
	Sample(ctx context.Context) (*domain.Character, error)
}

// ChatService defines chat exchange and history operations.
type ChatService interface {
	// Exchange generates and records one reply between two characters.
	Exchange(ctx context.Context, in services.ChatInput) (*services.ChatResult, error)
	// History returns a page of a pair's messages and the total count.
	History(ctx context.Context, a, b string, page, pageSize int) ([]domain.Message, int64, error)
	// Stats returns the pair's message count and latest message time.
	Stats(ctx context.Context, a, b string) (int64, *time.Time, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	charSvc CharacterService
	chatSvc ChatService
}

// New constructs Handlers bound to the given services and installs the
// request validators on gin's binding engine.
func New(charSvc CharacterService, chatSvc ChatService) *Handlers {
	registerValidators()
	return &Handlers{charSvc: charSvc, chatSvc: chatSvc}
}

// CharacterRequest is the JSON payload describing a character.
//
// The 100-rune name limit is enforced by the service on the normalized name.
type CharacterRequest struct {
	Name        string   `json:"name" binding:"required" example:"Alice"`
	Personality string   `json:"personality" binding:"required,min=10" example:"Loves long walks"`
	Hobbies     []string `json:"hobbies" binding:"required,min=1,dive,notblank" example:"reading"`
}

func (r CharacterRequest) input() services.CharacterInput {
	return services.CharacterInput{Name: r.Name, Personality: r.Personality, Hobbies: r.Hobbies}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
