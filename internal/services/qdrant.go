package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/models"
)

// embeddingSize matches text-embedding-004.
const embeddingSize = 768

// QdrantService stores one point per dictionary entry so free-text terms can
// be resolved by vector similarity.
type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertEntry(ctx context.Context, entry models.DictionaryEntry, embedding []float32) error
	SearchNearest(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
}

type SearchResult struct {
	Code     string
	Label    string
	Category string
	Score    float32
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, log *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     embeddingSize,
		log:            log.Named("qdrant"),
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("Collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("Qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertEntry implements QdrantService. Point ids derive from the code, so
// re-ingesting the dictionary replaces points instead of duplicating them.
func (q *qdrantService) UpsertEntry(ctx context.Context, entry models.DictionaryEntry, embedding []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(EntryPointID(entry.Code)),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"code":     entry.Code,
			"label":    entry.Label,
			"category": entry.Category,
			"synonyms": strings.Join(entry.Synonyms, ", "),
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchNearest implements QdrantService.
func (q *qdrantService) SearchNearest(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			Code:     payloadString(point.Payload, "code"),
			Label:    payloadString(point.Payload, "label"),
			Category: payloadString(point.Payload, "category"),
			Score:    point.Score,
		})
	}

	return results, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}

// EntryPointID is the stable point id of a dictionary code.
func EntryPointID(code string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("condition:"+code)).String()
}

// EntryEmbeddingText is the text embedded for a dictionary entry.
func EntryEmbeddingText(entry models.DictionaryEntry) string {
	if len(entry.Synonyms) == 0 {
		return entry.Label
	}
	return entry.Label + ": " + strings.Join(entry.Synonyms, ", ")
}

type vectorSearcher interface {
	SearchNearest(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
}

type qdrantSemanticMatcher struct {
	embedder Embedder
	index    vectorSearcher
	minScore float64
}

// NewSemanticMatcher embeds the term and accepts the nearest entry only when
// its cosine score reaches minScore.
func NewSemanticMatcher(embedder Embedder, index QdrantService, minScore float64) SemanticMatcher {
	return &qdrantSemanticMatcher{embedder: embedder, index: index, minScore: minScore}
}

func (s *qdrantSemanticMatcher) NearestCondition(ctx context.Context, term string) (string, float64, error) {
	vec, err := s.embedder.GenerateEmbedding(ctx, term)
	if err != nil {
		return "", 0, err
	}

	results, err := s.index.SearchNearest(ctx, vec, 1)
	if err != nil {
		return "", 0, err
	}
	if len(results) == 0 {
		return "", 0, nil
	}

	score := float64(results[0].Score)
	if score < s.minScore {
		return "", score, nil
	}
	return results[0].Code, score, nil
}
