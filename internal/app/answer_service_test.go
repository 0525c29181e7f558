package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netqa/internal/ai"
	"netqa/internal/model"
	"netqa/internal/retrieval"
)

type fakeRetriever struct {
	passages []retrieval.Passage
	err      error
}

func (r *fakeRetriever) Query(_ context.Context, _ string) ([]retrieval.Passage, error) {
	return r.passages, r.err
}

// fakeGenerator emits its fragments through onChunk, then returns err (if
// any) with the accumulated text, like the real streaming client.
type fakeGenerator struct {
	fragments []string
	err       error

	gotMessages []ai.ChatMessage
}

func (g *fakeGenerator) Stream(_ context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	g.gotMessages = messages
	var full strings.Builder
	for _, f := range g.fragments {
		full.WriteString(f)
		if err := onChunk(f); err != nil {
			return full.String(), err
		}
	}
	return full.String(), g.err
}

type capturePublisher struct {
	published []model.Message
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, msg model.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

type fakeMessageStore struct {
	messages []model.Message
	err      error
}

func (s *fakeMessageStore) ListByUserID(_ uint) ([]model.Message, error) {
	return s.messages, s.err
}

func collectChunks(sink *[]string) func(string) error {
	return func(chunk string) error {
		*sink = append(*sink, chunk)
		return nil
	}
}

func TestAskStreamsAndPersistsInOrder(t *testing.T) {
	publisher := &capturePublisher{}
	generator := &fakeGenerator{fragments: []string{"A MAC address ", "identifies a NIC."}}
	svc := NewAnswerService(
		&fakeMessageStore{},
		publisher,
		nil,
		&fakeRetriever{passages: []retrieval.Passage{{Content: "MAC addresses are 48-bit link-layer identifiers."}}},
		generator,
		nil,
	)

	var chunks []string
	full, err := svc.Ask(context.Background(), 1, "What is a MAC address?", collectChunks(&chunks))
	require.NoError(t, err)

	assert.Equal(t, "A MAC address identifies a NIC.", full)
	assert.Equal(t, []string{"A MAC address ", "identifies a NIC."}, chunks)

	// The prompt derives only from the retrieved passage and the question.
	require.Len(t, generator.gotMessages, 2)
	assert.Contains(t, generator.gotMessages[0].Content, "MAC addresses are 48-bit link-layer identifiers.")
	assert.Equal(t, "What is a MAC address?", generator.gotMessages[1].Content)

	// Persisted rows: question first, then the full streamed concatenation.
	require.Len(t, publisher.published, 2)
	assert.Equal(t, model.RoleUser, publisher.published[0].Role)
	assert.Equal(t, "What is a MAC address?", publisher.published[0].Content)
	assert.Equal(t, model.RoleAssistant, publisher.published[1].Role)
	assert.Equal(t, full, publisher.published[1].Content)
	assert.Equal(t, uint(1), publisher.published[1].UserID)
}

func TestAskDegradesWhenRetrievalFails(t *testing.T) {
	publisher := &capturePublisher{}
	generator := &fakeGenerator{fragments: []string{RefusalPhrase}}
	svc := NewAnswerService(
		&fakeMessageStore{},
		publisher,
		nil,
		&fakeRetriever{err: fmt.Errorf("%w: connection refused", retrieval.ErrUnavailable)},
		generator,
		nil,
	)

	var chunks []string
	full, err := svc.Ask(context.Background(), 1, "What is ARP?", collectChunks(&chunks))
	require.NoError(t, err)

	assert.NotEmpty(t, full)
	assert.NotEmpty(t, chunks)

	// Generation went ahead with an empty context block.
	require.Len(t, generator.gotMessages, 2)
	assert.NotContains(t, generator.gotMessages[0].Content, "%CONTEXT%")

	// Both rows still persisted, assistant content non-empty.
	require.Len(t, publisher.published, 2)
	assert.NotEmpty(t, publisher.published[1].Content)
}

func TestAskMidStreamFailureBecomesInlineDiagnostic(t *testing.T) {
	publisher := &capturePublisher{}
	generator := &fakeGenerator{
		fragments: []string{"The OSI model has "},
		err:       errors.New("inference server connection reset"),
	}
	svc := NewAnswerService(&fakeMessageStore{}, publisher, nil, &fakeRetriever{}, generator, nil)

	var chunks []string
	full, err := svc.Ask(context.Background(), 7, "How many OSI layers?", collectChunks(&chunks))

	// No protocol-level error once fragments have been sent.
	require.NoError(t, err)
	assert.Contains(t, full, "The OSI model has ")
	assert.Contains(t, full, "[system error: answer generation failed")

	// The diagnostic is visible in-stream and in the persisted content.
	joined := strings.Join(chunks, "")
	assert.Equal(t, full, joined)
	require.Len(t, publisher.published, 2)
	assert.Equal(t, full, publisher.published[1].Content)
}

func TestAskCancelledAbandonsWithoutDiagnostic(t *testing.T) {
	publisher := &capturePublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	generator := &fakeGenerator{fragments: []string{"partial "}}
	generator.err = context.Canceled
	svc := NewAnswerService(&fakeMessageStore{}, publisher, nil, &fakeRetriever{}, generator, nil)

	var chunks []string
	onChunk := func(chunk string) error {
		chunks = append(chunks, chunk)
		cancel() // client disconnects after the first fragment
		return nil
	}

	full, err := svc.Ask(ctx, 1, "What is DNS?", onChunk)
	require.NoError(t, err)

	assert.Equal(t, "partial ", full)
	assert.NotContains(t, full, "[system error")

	// Only the accumulated fragment is persisted.
	require.Len(t, publisher.published, 2)
	assert.Equal(t, "partial ", publisher.published[1].Content)
}

func TestAskEmptyQuestionRejectedBeforeAnyByte(t *testing.T) {
	publisher := &capturePublisher{}
	svc := NewAnswerService(&fakeMessageStore{}, publisher, nil, &fakeRetriever{}, &fakeGenerator{}, nil)

	var chunks []string
	_, err := svc.Ask(context.Background(), 1, "   ", collectChunks(&chunks))

	assert.ErrorIs(t, err, ErrQuestionEmpty)
	assert.Empty(t, chunks)
	assert.Empty(t, publisher.published)
}

func TestAskEnqueueFailureIsHardPreStream(t *testing.T) {
	publisher := &capturePublisher{err: errors.New("broker down")}
	svc := NewAnswerService(&fakeMessageStore{}, publisher, nil, &fakeRetriever{}, &fakeGenerator{fragments: []string{"x"}}, nil)

	var chunks []string
	_, err := svc.Ask(context.Background(), 1, "What is NAT?", collectChunks(&chunks))

	assert.ErrorIs(t, err, ErrMessageEnqueue)
	assert.Empty(t, chunks)
}

func TestAskEmptyGenerationStreamsNotice(t *testing.T) {
	publisher := &capturePublisher{}
	svc := NewAnswerService(&fakeMessageStore{}, publisher, nil, &fakeRetriever{}, &fakeGenerator{}, nil)

	var chunks []string
	full, err := svc.Ask(context.Background(), 1, "What is BGP?", collectChunks(&chunks))
	require.NoError(t, err)

	assert.NotEmpty(t, full)
	assert.NotEmpty(t, chunks)
	require.Len(t, publisher.published, 2)
	assert.Equal(t, full, publisher.published[1].Content)
}

func TestHistoryIdempotentRead(t *testing.T) {
	store := &fakeMessageStore{messages: []model.Message{
		{ID: 1, UserID: 1, Role: model.RoleUser, Content: "q"},
		{ID: 2, UserID: 1, Role: model.RoleAssistant, Content: "a"},
	}}
	svc := NewAnswerService(store, &capturePublisher{}, nil, &fakeRetriever{}, &fakeGenerator{}, nil)

	first, err := svc.History(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.History(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSaveMessageValidatesRole(t *testing.T) {
	publisher := &capturePublisher{}
	svc := NewAnswerService(&fakeMessageStore{}, publisher, nil, &fakeRetriever{}, &fakeGenerator{}, nil)

	err := svc.SaveMessage(context.Background(), 1, "system", "nope")
	assert.ErrorIs(t, err, ErrInvalidRole)

	require.NoError(t, svc.SaveMessage(context.Background(), 1, model.RoleUser, "hello"))
	require.Len(t, publisher.published, 1)
	assert.Equal(t, "hello", publisher.published[0].Content)
}
