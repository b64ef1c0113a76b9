package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
)

const DefaultIndex = "support-kb"

const indexMapping = `{
  "mappings": {
    "properties": {
      "source":  {"type": "keyword"},
      "title":   {"type": "text"},
      "tags":    {"type": "keyword"},
      "content": {"type": "text"}
    }
  }
}`

type esDocument struct {
	Source  string   `json:"source"`
	Title   string   `json:"title,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Content string   `json:"content"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string     `json:"_id"`
			Score  float64    `json:"_score"`
			Source esDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ElasticsearchStore is the keyword-search knowledge backend.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	index = strings.TrimSpace(index)
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchStore{client: client, index: index}
}

func (s *ElasticsearchStore) Close() {}

func (s *ElasticsearchStore) EnsureSchema(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("knowledge: check index %s: %w", s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("knowledge: create index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("knowledge: create index %s: %s", s.index, res.String())
	}
	return nil
}

func (s *ElasticsearchStore) Index(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		body, err := json.Marshal(esDocument{Source: d.Source, Title: d.Title, Tags: d.Tags, Content: d.Content})
		if err != nil {
			return fmt.Errorf("knowledge: encode %s: %w", d.ID, err)
		}

		res, err := s.client.Index(s.index, bytes.NewReader(body),
			s.client.Index.WithContext(ctx),
			s.client.Index.WithDocumentID(d.ID),
			s.client.Index.WithRefresh("true"),
		)
		if err != nil {
			return fmt.Errorf("knowledge: index %s: %w", d.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("knowledge: index %s: %s", d.ID, res.Status())
		}
		log.Debug().Str("id", d.ID).Str("index", s.index).Msg("indexed document")
	}
	return nil
}

func (s *ElasticsearchStore) Search(ctx context.Context, text string, k int) ([]contractx.Snippet, error) {
	if k <= 0 {
		return []contractx.Snippet{}, nil
	}

	query := map[string]any{
		"size": k,
		"query": map[string]any{
			"match": map[string]any{
				"content": map[string]any{"query": text},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", contractx.ErrRetrieval, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrieval, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", contractx.ErrRetrieval, res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", contractx.ErrRetrieval, err)
	}

	snippets := make([]contractx.Snippet, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		snippets = append(snippets, contractx.Snippet{
			ID:     hit.ID,
			Source: hit.Source.Source,
			Text:   hit.Source.Content,
			Score:  hit.Score,
		})
		if len(snippets) == k {
			break
		}
	}
	return snippets, nil
}
