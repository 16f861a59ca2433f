// Package esutil mirrors listings into the Elasticsearch listings index.
package esutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Document is the indexed shape of a listing.
type Document struct {
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Type           string             `json:"type"`
	Mode           string             `json:"mode"`
	Status         string             `json:"status"`
	CategoryID     *string            `json:"category_id"`
	CategorySlug   *string            `json:"category_slug"`
	OwnerID        string             `json:"owner_id"`
	City           *string            `json:"city"`
	Tags           []string           `json:"tags"`
	Wanted         *string            `json:"wanted"`
	EstimatedValue *float64           `json:"estimated_value"`
	Location       map[string]float64 `json:"location,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ListingToDocument converts a listing (with its category preloaded when
// present) into its index document.
func ListingToDocument(l *listing.Listing) (*Document, error) {
	if l == nil {
		return nil, errors.New("listing cannot be nil")
	}
	doc := &Document{
		Title:       l.Title,
		Description: l.Description,
		Type:        string(l.Type),
		Mode:        string(l.Mode),
		Status:      string(l.Status),
		OwnerID:     l.OwnerID.String(),
		City:        l.City,
		Tags:        []string(l.Tags),
		Wanted:      l.Wanted,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if l.CategoryID != nil {
		id := l.CategoryID.String()
		doc.CategoryID = &id
	}
	if l.Category != nil && l.Category.Slug != "" {
		doc.CategorySlug = &l.Category.Slug
	}
	if l.EstimatedValue.Valid {
		v := l.EstimatedValue.Decimal.InexactFloat64()
		doc.EstimatedValue = &v
	}
	if l.Latitude != nil && l.Longitude != nil {
		doc.Location = map[string]float64{"lat": *l.Latitude, "lon": *l.Longitude}
	}
	return doc, nil
}

// ListingIndex implements listing.SearchIndex on Elasticsearch.
type ListingIndex struct {
	client *elasticsearch.ESClientWrapper
	index  string
	logger *zap.Logger
}

// NewListingIndex returns nil when Elasticsearch is not configured, so the
// listing service falls back to database search.
func NewListingIndex(client *elasticsearch.ESClientWrapper, logger *zap.Logger) listing.SearchIndex {
	if client == nil {
		return nil
	}
	return &ListingIndex{client: client, index: elasticsearch.ListingsIndexName, logger: logger.Named("ListingIndex")}
}

func (x *ListingIndex) Index(ctx context.Context, l *listing.Listing) error {
	doc, err := ListingToDocument(l)
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshalling listing to JSON for ES: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: l.ID.String(),
		Body:       bytes.NewReader(body),
	}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("indexing listing %s: %w", l.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing listing %s: status %s", l.ID, res.Status())
	}
	return nil
}

func (x *ListingIndex) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: id.String()}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("removing listing %s from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("removing listing %s from index: status %s", id, res.Status())
	}
	return nil
}

// BuildSearchQuery renders the Elasticsearch query body for q. Only
// published listings are ever returned.
func BuildSearchQuery(q listing.SearchQuery) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"status": string(listing.StatusPublished)}},
	}
	if q.Type != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"type": string(q.Type)}})
	}
	if q.Mode != "" {
		filters = append(filters, map[string]interface{}{"terms": map[string]interface{}{"mode": []string{string(q.Mode), string(listing.ModeBoth)}}})
	}
	if q.CategoryID != nil && *q.CategoryID != uuid.Nil {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"category_id": q.CategoryID.String()}})
	}
	if q.OwnerID != nil && *q.OwnerID != uuid.Nil {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"owner_id": q.OwnerID.String()}})
	}
	if city := strings.TrimSpace(q.City); city != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"city": city}})
	}
	if tag := strings.TrimSpace(q.Tag); tag != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"tags": strings.ToLower(tag)}})
	}

	boolQuery := map[string]interface{}{"filter": filters}
	if text := strings.TrimSpace(q.Text); text != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"title^3", "description", "wanted", "tags"},
				"fuzziness": "AUTO",
			}},
		}
	}

	sortField := "created_at"
	switch q.SortBy {
	case "title":
		sortField = "title.keyword"
	case "estimated_value":
		sortField = "estimated_value"
	}
	order := "desc"
	if q.SortBy != "" && !strings.EqualFold(q.SortOrder, "desc") {
		order = "asc"
	}

	sort := []interface{}{map[string]interface{}{sortField: map[string]interface{}{"order": order}}}
	if q.SortBy == "" && strings.TrimSpace(q.Text) != "" {
		sort = append([]interface{}{"_score"}, sort...)
	}

	return map[string]interface{}{
		"query":   map[string]interface{}{"bool": boolQuery},
		"sort":    sort,
		"from":    (q.Page - 1) * q.PageSize,
		"size":    q.PageSize,
		"_source": false,
	}
}

func (x *ListingIndex) Search(ctx context.Context, q listing.SearchQuery) ([]uuid.UUID, int64, error) {
	body, err := json.Marshal(BuildSearchQuery(q))
	if err != nil {
		return nil, 0, fmt.Errorf("error marshalling search query: %w", err)
	}
	res, err := esapi.SearchRequest{
		Index:          []string{x.index},
		Body:           bytes.NewReader(body),
		TrackTotalHits: true,
	}.Do(ctx, x.client.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("searching listings: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("searching listings: status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decoding search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			x.logger.Warn("Skipping search hit with a malformed id", zap.String("id", h.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, parsed.Hits.Total.Value, nil
}

// BulkIndex sends one bulk request for listings and reports how many
// documents were accepted.
func (x *ListingIndex) BulkIndex(ctx context.Context, listings []listing.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	for i := range listings {
		doc, err := ListingToDocument(&listings[i])
		if err != nil {
			return 0, err
		}
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": x.index, "_id": listings[i].ID.String()}}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return 0, fmt.Errorf("encoding bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return 0, fmt.Errorf("encoding bulk document: %w", err)
		}
	}

	res, err := esapi.BulkRequest{Body: &buf, Refresh: "false"}.Do(ctx, x.client.Client)
	if err != nil {
		return 0, fmt.Errorf("bulk indexing listings: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk indexing listings: status %s", res.Status())
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding bulk response: %w", err)
	}

	indexed := 0
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error != nil {
				x.logger.Error("Failed to index document in bulk batch",
					zap.String("listingID", result.ID),
					zap.String("type", result.Error.Type),
					zap.String("reason", result.Error.Reason))
				continue
			}
			indexed++
		}
	}
	return indexed, nil
}
