package utils

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// Embedder produces the vector for a piece of text. Satisfied by
// OpenAIClient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FoodIndex stores confirmed food analyses as embeddings and retrieves the
// closest previously-resolved foods for a new description. It is optional
// infrastructure: callers treat a nil index as "no grounding context".
type FoodIndex struct {
	index    *pinecone.IndexConnection
	embedder Embedder
}

func NewFoodIndex(embedder Embedder) (*FoodIndex, error) {
	ctx := context.Background()

	indexName := os.Getenv("PINECONE_INDEX")
	if indexName == "" {
		return nil, fmt.Errorf("PINECONE_INDEX environment variable is not set")
	}

	pineconeAPIKey := os.Getenv("PINECONE_API_KEY")
	if pineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY environment variable is not set")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: pineconeAPIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	idx, err := client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %q: %w", indexName, err)
	}

	idxConnection, err := client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: "resolved-foods"})
	if err != nil {
		return nil, fmt.Errorf("failed to create IndexConnection for host %v: %w", idx.Host, err)
	}

	return &FoodIndex{index: idxConnection, embedder: embedder}, nil
}

// Similar returns the text of up to topK previously confirmed foods closest
// to the description.
func (f *FoodIndex) Similar(ctx context.Context, description string, topK int) ([]string, error) {
	embedding, err := f.embedder.Embed(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("error vectorizing description: %w", err)
	}

	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	}

	queryResponse, err := f.index.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, fmt.Errorf("error querying Pinecone index: %w", err)
	}

	var matches []string
	for _, match := range queryResponse.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		if value, ok := match.Vector.Metadata.Fields["text"]; ok {
			if text := value.GetStringValue(); text != "" {
				matches = append(matches, text)
			}
		}
	}

	return matches, nil
}

// Remember upserts one confirmed food under a fresh vector id. Entries are
// write-only from the pipeline's perspective; duplicates are harmless since
// retrieval deduplicates nothing but only feeds prompt context.
func (f *FoodIndex) Remember(ctx context.Context, foodName, description string) error {
	text := foodName
	if description != "" {
		text += " — " + description
	}

	embedding, err := f.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("error vectorizing food: %w", err)
	}

	metadata, err := structpb.NewStruct(map[string]interface{}{"text": text})
	if err != nil {
		return fmt.Errorf("failed to build metadata: %w", err)
	}

	_, err = f.index.UpsertVectors(ctx, []*pinecone.Vector{
		{
			Id:       uuid.New().String(),
			Values:   embedding,
			Metadata: metadata,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert food vector: %w", err)
	}

	return nil
}
