// Character HTTP handlers.
//
//   - POST /create_character/     (create)
//   - GET  /characters/{name}     (lookup)
//   - GET  /test_db               (store probe)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/character-chat-backend/internal/domain"
	"github.com/tbourn/character-chat-backend/internal/http/middleware"
)

// CreateCharacterResponse is returned after a character is stored.
type CreateCharacterResponse struct {
	Message   string            `json:"message" example:"Character created successfully"`
	Character *domain.Character `json:"character"`
	ID        string            `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// TestDBResponse reports store connectivity with an arbitrary stored character.
type TestDBResponse struct {
	Message         string            `json:"message" example:"Store is connected"`
	SampleCharacter *domain.Character `json:"sample_character"`
}

// CreateCharacter godoc
// @ID          createCharacter
// @Summary     Create a character
// @Description Stores a new character profile. Names are unique.
// @Tags        Characters
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CharacterRequest  true  "Character payload"
// @Success     200   {object}  handlers.CreateCharacterResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed or character already exists"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /create_character/ [post]
func (h *Handlers) CreateCharacter(c *gin.Context) {
	var req CharacterRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		failWith(c, bindError(err))
		return
	}

	ch, id, err := h.charSvc.Create(c.Request.Context(), req.input())
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, CreateCharacterResponse{
		Message:   "Character created successfully",
		Character: ch,
		ID:        id,
	})
}

// GetCharacter godoc
// @ID          getCharacter
// @Summary     Get a character by name
// @Tags        Characters
// @Produce     json
// @Param       name  path      string  true  "Character name"  example(Alice)
// @Success     200   {object}  domain.Character
// @Failure     404   {object}  handlers.ErrorResponse  "Character not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /characters/{name} [get]
func (h *Handlers) GetCharacter(c *gin.Context) {
	ch, err := h.charSvc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// TestDB godoc
// @ID          testDB
// @Summary     Probe the store
// @Description Returns an arbitrary stored character. Store failures are reported as {"error": "..."} with status 200.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.TestDBResponse
// @Router      /test_db [get]
func (h *Handlers) TestDB(c *gin.Context) {
	sample, err := h.charSvc.Sample(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("store probe failed")
		ok(c, http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	ok(c, http.StatusOK, TestDBResponse{
		Message:         "Store is connected",
		SampleCharacter: sample,
	})
}
