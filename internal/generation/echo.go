// Package generation provides reply generators for chat exchanges. Echo is a
// placeholder; a model-backed generator plugs in behind the same method set.
package generation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// Echo answers with a fixed template quoting the conversation.
type Echo struct{}

// Generate returns "Response from <c1> to <c2>: <conversation>". Feedback is
// accepted for signature compatibility and ignored.
func (Echo) Generate(ctx context.Context, c1, c2 domain.Character, conversation, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reply := fmt.Sprintf("Response from %s to %s: %s", c1.Name, c2.Name, conversation)
	zerolog.Ctx(ctx).Debug().Str("reply", reply).Msg("generated reply")
	return reply, nil
}

// Func adapts an ordinary function to the generator method set.
type Func func(ctx context.Context, c1, c2 domain.Character, conversation, feedback string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, c1, c2 domain.Character, conversation, feedback string) (string, error) {
	return f(ctx, c1, c2, conversation, feedback)
}
