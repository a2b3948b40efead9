// Chat HTTP handlers.
//
//   - POST /chat/                                  (exchange one turn)
//   - GET  /chat/{character1}/{character2}/messages (paginated history, ETag)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and the same key was
// already answered for the pair, the stored reply is returned with
// `Idempotency-Replayed: true` and nothing new is generated or stored.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/character-chat-backend/internal/domain"
	"github.com/tbourn/character-chat-backend/internal/http/middleware"
	"github.com/tbourn/character-chat-backend/internal/services"
	"github.com/tbourn/character-chat-backend/internal/utils"
)

// ChatRequest is the JSON payload for a chat exchange.
type ChatRequest struct {
	Character1    CharacterRequest `json:"character1"`
	Character2    CharacterRequest `json:"character2"`
	Conversation  string           `json:"conversation" binding:"required" example:"Hi"`
	JudgeFeedback string           `json:"judge_feedback" example:"Be more playful"`
}

// ChatResponse is the result of a chat exchange.
type ChatResponse struct {
	Status    string    `json:"status" example:"success"`
	Reply     string    `json:"reply" example:"Response from Alice to Bob: Hi"`
	Timestamp time.Time `json:"timestamp"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// pairRequest is the subset of ChatRequest needed to address the chat record.
type pairRequest struct {
	Character1 struct {
		Name string `json:"name"`
	} `json:"character1"`
	Character2 struct {
		Name string `json:"name"`
	} `json:"character2"`
}

// ChatReplayScope returns the pair key a chat request addresses, or "" when
// the body cannot be read. The body is cached on the context so the handler
// can bind it again.
func ChatReplayScope(c *gin.Context) string {
	var p pairRequest
	if err := c.ShouldBindBodyWith(&p, binding.JSON); err != nil {
		return ""
	}
	if p.Character1.Name == "" || p.Character2.Name == "" {
		return ""
	}
	return string(domain.PairKeyFor(p.Character1.Name, p.Character2.Name))
}

// Chat godoc
// @ID          chat
// @Summary     Exchange one chat turn
// @Description Generates a reply from character1 to character2 and appends it to the pair's chat record.
// @Description Supports idempotency via the Idempotency-Key header (same key and pair → same result).
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body      handlers.ChatRequest  true  "Chat payload"
// @Success     200              {object}  handlers.ChatResponse
// @Failure     400              {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404              {object}  handlers.ErrorResponse  "One or both characters not found"
// @Failure     409              {object}  handlers.ErrorResponse  "Same Idempotency-Key still in progress"
// @Failure     500              {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/ [post]
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		failWith(c, bindError(err))
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	res, err := h.chatSvc.Exchange(c.Request.Context(), services.ChatInput{
		Character1:     req.Character1.input(),
		Character2:     req.Character2.input(),
		Conversation:   req.Conversation,
		JudgeFeedback:  req.JudgeFeedback,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		failWith(c, err)
		return
	}

	if res.Replayed {
		c.Header(middleware.HeaderReplayed, "true")
	}
	ok(c, http.StatusOK, ChatResponse{
		Status:    "success",
		Reply:     res.Message.Text,
		Timestamp: res.Message.Timestamp,
	})
}

// ListChatMessages godoc
// @ID          listChatMessages
// @Summary     List a pair's messages (paginated)
// @Description Returns the pair's messages in append order. The pair is unordered. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
// @Param       character1     path    string  true   "First character name"
// @Param       character2     path    string  true   "Second character name"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/{character1}/{character2}/messages [get]
func (h *Handlers) ListChatMessages(c *gin.Context) {
	ctx := c.Request.Context()
	a, b := c.Param("character1"), c.Param("character2")

	// ETag pre-check (best effort).
	if count, last, err := h.chatSvc.Stats(ctx, a, b); err == nil {
		var ts int64
		if last != nil {
			ts = last.UnixNano()
		}
		etag := fmt.Sprintf(`W/"chat:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, pageSize := utils.ClampPagination(c.Query("page"), c.Query("page_size"), 20, 100)

	items, total, err := h.chatSvc.History(ctx, a, b, page, pageSize)
	if err != nil {
		failWith(c, err)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
