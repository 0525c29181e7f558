package retrieval

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"netqa/internal/ai"
)

// QdrantConfig holds connection settings for the Qdrant vector store.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	TopK       int
}

const defaultTopK = 3

// QdrantRetriever embeds the question and runs a similarity search against a
// Qdrant collection. Chunk text is expected in the "content" payload field,
// an optional origin in "source".
type QdrantRetriever struct {
	client     *qdrant.Client
	embedder   *ai.Client
	embConfig  ai.EmbeddingConfig
	collection string
	topK       int
}

func NewQdrantRetriever(cfg QdrantConfig, embedder *ai.Client, embConfig ai.EmbeddingConfig) (*QdrantRetriever, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url failed: %w", err)
	}

	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client failed: %w", err)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	return &QdrantRetriever{
		client:     client,
		embedder:   embedder,
		embConfig:  embConfig,
		collection: cfg.Collection,
		topK:       topK,
	}, nil
}

func (r *QdrantRetriever) Query(ctx context.Context, question string) ([]Passage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty query", ErrUnavailable)
	}

	vector, err := r.embedder.Embed(ctx, r.embConfig, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrUnavailable, err)
	}

	limit := uint64(r.topK)
	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant query: %v", ErrUnavailable, err)
	}

	passages := make([]Passage, 0, len(points))
	for _, point := range points {
		passage := Passage{Score: point.Score}
		for key, value := range point.Payload {
			switch key {
			case "content":
				passage.Content = value.GetStringValue()
			case "source":
				passage.Source = value.GetStringValue()
			}
		}
		if passage.Content == "" {
			continue
		}
		passages = append(passages, passage)
	}
	return passages, nil
}

func (r *QdrantRetriever) Close() error {
	return r.client.Close()
}

var _ Retriever = (*QdrantRetriever)(nil)
