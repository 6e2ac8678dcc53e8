package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	opensearchclient "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Indexer keeps a full-text search index of issues in sync and answers
// queries. Index writes are best effort; the database stays the source
// of truth.
type Indexer interface {
	IndexIssue(ctx context.Context, issue *Issue) error
	RemoveIssue(ctx context.Context, id uuid.UUID) error
	SearchIssues(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

// NoopIndexer disables search indexing.
type NoopIndexer struct{}

func (NoopIndexer) IndexIssue(ctx context.Context, issue *Issue) error { return nil }
func (NoopIndexer) RemoveIssue(ctx context.Context, id uuid.UUID) error {
	return nil
}
func (NoopIndexer) SearchIssues(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

// OpenSearchIndexer implements Indexer on an OpenSearch cluster.
type OpenSearchIndexer struct {
	client *opensearchclient.Client
	index  string
}

// NewOpenSearchIndexer creates an indexer writing to the given index.
func NewOpenSearchIndexer(client *opensearchclient.Client, index string) *OpenSearchIndexer {
	if index == "" {
		index = "campusfix-issues"
	}
	return &OpenSearchIndexer{client: client, index: index}
}

// issueDoc is the subset of issue fields kept in the search index.
type issueDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Visibility  string `json:"visibility"`
}

func (o *OpenSearchIndexer) IndexIssue(ctx context.Context, issue *Issue) error {
	doc, err := json.Marshal(issueDoc{
		Title:       issue.Title,
		Description: issue.Description,
		Location:    issue.Location,
		Category:    issue.Category,
		Status:      issue.Status,
		Visibility:  issue.Visibility,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal issue document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      o.index,
		DocumentID: issue.ID.String(),
		Body:       bytes.NewReader(doc),
	}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("failed to index issue: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index request failed: %s", res.Status())
	}
	return nil
}

func (o *OpenSearchIndexer) RemoveIssue(ctx context.Context, id uuid.UUID) error {
	req := opensearchapi.DeleteRequest{
		Index:      o.index,
		DocumentID: id.String(),
	}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("failed to delete issue from index: %w", err)
	}
	defer res.Body.Close()
	// A missing document is fine; the goal is absence.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete request failed: %s", res.Status())
	}
	return nil
}

func (o *OpenSearchIndexer) SearchIssues(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 20
	}

	body, err := json.Marshal(map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "description", "location"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{o.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search request failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var (
	_ Indexer = (*OpenSearchIndexer)(nil)
	_ Indexer = NoopIndexer{}
)
