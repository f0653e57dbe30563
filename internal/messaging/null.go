package messaging

import "context"

// Null satisfies Messaging for deployments with no chat platform
// credentials configured. Every call is a no-op.
type Null struct{}

// NewNull builds a Null adapter.
func NewNull() *Null { return &Null{} }

func (Null) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (Null) Notify(ctx context.Context, text string) error                      { return nil }
func (Null) SendMessage(ctx context.Context, chatID, text string) error         { return nil }
func (Null) AddReaction(ctx context.Context, messageID, emoji string) error     { return nil }
func (Null) SendImage(ctx context.Context, chatID, imagePath string) error      { return nil }
