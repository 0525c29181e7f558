package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"netqa/internal/ai"
	"netqa/internal/model"
	"netqa/internal/retrieval"
)

var (
	ErrQuestionEmpty  = errors.New("question is empty")
	ErrInvalidRole    = errors.New("role must be user or assistant")
	ErrMessageEnqueue = errors.New("message enqueue failed")
)

// Generator produces a lazy, forward-only sequence of answer fragments for a
// prompt. The sequence is not restartable: a retry is a fresh call.
type Generator interface {
	Stream(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// AsyncMessagePublisher hands a message row to the persistence queue without
// blocking on the database.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// MessageStore is the read side of the conversation ledger.
type MessageStore interface {
	ListByUserID(userID uint) ([]model.Message, error)
}

// HistoryCache is an optional read-through cache for History.
type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, userID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

// AnswerService orchestrates one question/answer exchange:
//
//	persist question -> retrieve -> assemble -> stream -> persist answer
//
// Authentication and rate limiting run as middleware before the service is
// reached. The failure contract is asymmetric: before the first fragment is
// forwarded the service may return a structured error; from the first
// fragment on, every failure is folded into the visible stream as an inline
// diagnostic and the call still returns the accumulated text.
type AnswerService struct {
	messages     MessageStore
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	retriever    retrieval.Retriever
	generator    Generator
	logger       *zap.Logger
}

func NewAnswerService(
	messages MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	retriever retrieval.Retriever,
	generator Generator,
	logger *zap.Logger,
) *AnswerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerService{
		messages:     messages,
		publisher:    publisher,
		historyCache: historyCache,
		retriever:    retriever,
		generator:    generator,
		logger:       logger,
	}
}

const emptyAnswerNotice = "The model returned an empty response."

// Ask runs the pipeline for one question. Fragments are forwarded to onChunk
// as they arrive and simultaneously accumulated; the full accumulated text
// (including any inline diagnostics) is returned and persisted as the
// assistant message.
func (s *AnswerService) Ask(ctx context.Context, userID uint, question string, onChunk func(string) error) (string, error) {
	if userID == 0 {
		return "", ErrInvalidInput
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrQuestionEmpty
	}
	if s.publisher == nil {
		return "", ErrMessageEnqueue
	}

	s.invalidateHistory(ctx, userID)

	// Persist the question first. This still precedes the first streamed
	// byte, so a broken queue is a hard, structured failure.
	userMessage := model.Message{
		UserID:    userID,
		Role:      model.RoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, userMessage); err != nil {
		s.logger.Error("enqueue question failed", zap.Uint("user_id", userID), zap.Error(err))
		return "", ErrMessageEnqueue
	}

	// Retrieval failure degrades the answer, it never fails the request.
	contextBlock := ""
	passages, err := s.retriever.Query(ctx, question)
	if err != nil {
		s.logger.Warn("retrieval degraded to empty context", zap.Uint("user_id", userID), zap.Error(err))
	} else {
		contextBlock = retrieval.BuildContext(passages)
	}

	promptMessages := AssemblePrompt(contextBlock, question)

	full, genErr := s.generator.Stream(ctx, promptMessages, onChunk)
	if genErr != nil {
		if ctx.Err() != nil {
			// Client gone: abandon generation, keep whatever accumulated.
			s.logger.Info("generation abandoned by caller",
				zap.Uint("user_id", userID),
				zap.Int("accumulated_bytes", len(full)),
			)
		} else {
			// The response is already committed, so the failure travels
			// in-band: shown to the client and kept in the ledger.
			diagnostic := fmt.Sprintf("\n[system error: answer generation failed: %v]", genErr)
			_ = onChunk(diagnostic)
			full += diagnostic
		}
	}

	if full == "" {
		full = emptyAnswerNotice
		_ = onChunk(full)
	}

	s.persistAnswer(userID, full)
	return full, nil
}

// persistAnswer enqueues the assistant message on a background scope: the
// write must outlive the request, whose context may already be cancelled. A
// failure here is logged and accepted since the answer was already delivered.
func (s *AnswerService) persistAnswer(userID uint, content string) {
	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assistantMessage := model.Message{
		UserID:    userID,
		Role:      model.RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(persistCtx, assistantMessage); err != nil {
		s.logger.Error("enqueue answer failed, message lost",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
	}
}

// SaveMessage appends one client-supplied row to the ledger.
func (s *AnswerService) SaveMessage(ctx context.Context, userID uint, role, content string) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	if role != model.RoleUser && role != model.RoleAssistant {
		return ErrInvalidRole
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrInvalidInput
	}
	if s.publisher == nil {
		return ErrMessageEnqueue
	}

	s.invalidateHistory(ctx, userID)
	msg := model.Message{
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return ErrMessageEnqueue
	}
	return nil
}

// History returns the user's conversation, oldest first. Reads are served
// from the cache unless a recent append marked it dirty.
func (s *AnswerService) History(ctx context.Context, userID uint) ([]model.Message, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messages.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, messages)
		}
	}
	return messages, nil
}

func (s *AnswerService) invalidateHistory(ctx context.Context, userID uint) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, userID)
	_ = s.historyCache.DeleteHistory(ctx, userID)
}
