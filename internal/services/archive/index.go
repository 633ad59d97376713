// internal/services/archive/index.go
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"jelita/internal/models"
)

var (
	ErrIndexUnavailable = errors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrSearchFailed     = errors.New("SEARCH_QUERY_FAILED")
)

// Index keeps a searchable copy of archived licences.
type Index interface {
	Put(ctx context.Context, a *models.Archive) error
	Search(ctx context.Context, query string, size int) (*SearchResult, error)
}

type ElasticIndex struct {
	client *elasticsearch.Client
	name   string
}

func NewElasticIndex(client *elasticsearch.Client, name string) *ElasticIndex {
	return &ElasticIndex{client: client, name: name}
}

func (e *ElasticIndex) Name() string { return e.name }

// Mapping is the index body used when the index is first created.
func (e *ElasticIndex) Mapping() string { return indexMapping }

func (e *ElasticIndex) Put(ctx context.Context, a *models.Archive) error {
	body, err := json.Marshal(documentFor(a))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      e.name,
		DocumentID: strconv.FormatInt(a.ID, 10),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index arsip %d: %s", ErrSearchFailed, a.ID, res.Status())
	}
	return nil
}

func buildSearchQuery(q string) map[string]interface{} {
	if q == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"sort":  []interface{}{map[string]interface{}{"archived_at": map[string]interface{}{"order": "desc", "unmapped_type": "date"}}},
		}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"nomor_registrasi^3", "jenis_izin^2", "file_path", "metadata_text"},
				"type":   "best_fields",
			},
		},
	}
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			Score  *float64 `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticIndex) Search(ctx context.Context, q string, size int) (*SearchResult, error) {
	body, err := json.Marshal(buildSearchQuery(q))
	if err != nil {
		return nil, err
	}
	req := esapi.SearchRequest{
		Index: []string{e.name},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: index %s not found", ErrIndexUnavailable, e.name)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	out := &SearchResult{Query: q, TotalHits: r.Hits.Total.Value, Took: r.Took, Hits: make([]SearchHit, 0, len(r.Hits.Hits))}
	if r.Hits.MaxScore != nil {
		out.MaxScore = *r.Hits.MaxScore
	}
	for _, h := range r.Hits.Hits {
		hit := SearchHit{Document: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}
