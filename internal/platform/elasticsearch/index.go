package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ListingsIndexName = "listings"

type field = map[string]interface{}

// ListingsMapping is the index mapping for barter listings.
func ListingsMapping() (string, error) {
	keywordSub := field{"keyword": field{"type": "keyword", "ignore_above": 256}}
	mapping := field{
		"mappings": field{
			"properties": field{
				"title":           field{"type": "text", "fields": keywordSub},
				"description":     field{"type": "text"},
				"type":            field{"type": "keyword"},
				"mode":            field{"type": "keyword"},
				"status":          field{"type": "keyword"},
				"category_id":     field{"type": "keyword"},
				"category_slug":   field{"type": "keyword"},
				"owner_id":        field{"type": "keyword"},
				"city":            field{"type": "keyword"},
				"tags":            field{"type": "keyword"},
				"wanted":          field{"type": "text"},
				"estimated_value": field{"type": "scaled_float", "scaling_factor": 100},
				"location":        field{"type": "geo_point"},
				"created_at":      field{"type": "date"},
				"updated_at":      field{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling listings mapping to JSON: %w", err)
	}
	return string(b), nil
}

// CreateListingsIndexIfNotExists creates the listings index with its
// mapping unless it already exists.
func CreateListingsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{ListingsIndexName}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if listings index exists: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.Info("Listings index already exists", zap.String("index_name", ListingsIndexName))
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("error checking if listings index exists: status %s", res.Status())
	}

	mappingJSON, err := ListingsMapping()
	if err != nil {
		return err
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: ListingsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating listings index %s: %w", ListingsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		if err := json.NewDecoder(createRes.Body).Decode(&errorBody); err == nil {
			log.Error("Failed to create listings index", zap.String("status", createRes.Status()), zap.Any("error_details", errorBody))
		}
		return fmt.Errorf("failed to create listings index %s: status %s", ListingsIndexName, createRes.Status())
	}

	log.Info("Listings index created", zap.String("index_name", ListingsIndexName))
	return nil
}
