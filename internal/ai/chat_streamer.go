package ai

import "context"

// ChatStreamer binds a Client to a fixed chat configuration so callers only
// deal with prompt in, fragments out.
type ChatStreamer struct {
	client *Client
	cfg    ChatConfig
}

func NewChatStreamer(client *Client, cfg ChatConfig) *ChatStreamer {
	return &ChatStreamer{client: client, cfg: cfg}
}

func (s *ChatStreamer) Stream(ctx context.Context, messages []ChatMessage, onChunk func(string) error) (string, error) {
	return s.client.StreamChat(ctx, s.cfg, messages, onChunk)
}
