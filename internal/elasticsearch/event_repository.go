package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/operator"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/rs/zerolog/log"

	"lognorm-backend/config"
	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/repository"
)

type elasticsearchEventRepository struct {
	esTypedClient *elasticsearch.TypedClient
	indexPrefix   string
}

func NewElasticsearchEventRepository(cfg *config.Config) (repository.EventRepository, error) {
	transport := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: time.Second * 10,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
	}
	esCfgForTyped := elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Transport: transport,
	}

	typedClient, err := elasticsearch.NewTypedClient(esCfgForTyped)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Typed Elasticsearch Client in Repository")
		return nil, err
	}

	return &elasticsearchEventRepository{
		esTypedClient: typedClient,
		indexPrefix:   cfg.Elasticsearch.EventIndex,
	}, nil
}

func (r *elasticsearchEventRepository) Search(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	indexPattern := fmt.Sprintf("%s-*", r.indexPrefix)
	queryParts := []types.Query{}

	startTimeStr := req.StartTime.Format(time.RFC3339)
	endTimeStr := req.EndTime.Format(time.RFC3339)

	queryParts = append(queryParts, types.Query{
		Range: map[string]types.RangeQuery{
			"@timestamp": types.DateRangeQuery{
				Gte: &startTimeStr,
				Lte: &endTimeStr,
			},
		},
	})

	if req.Query != "" {
		queryParts = append(queryParts, types.Query{
			QueryString: &types.QueryStringQuery{
				Query:  req.Query,
				Fields: []string{"message", "source", "level", "raw_log"},
				DefaultOperator: &operator.Operator{
					Name: "AND",
				},
			},
		})
	}

	queryParts = appendTermsFilter(queryParts, "level.keyword", req.Levels)
	queryParts = appendTermsFilter(queryParts, "source.keyword", req.Sources)
	queryParts = appendTermsFilter(queryParts, "pattern_kind.keyword", req.Kinds)
	queryParts = appendTermsFilter(queryParts, "flags.keyword", req.Flags)

	from := (req.Page - 1) * req.Size
	order := sortorder.Desc
	if req.SortOrder == "asc" {
		order = sortorder.Asc
	}
	sortField := req.SortBy
	if sortField != "@timestamp" {
		knownKeywordFields := map[string]bool{
			"level":        true,
			"source":       true,
			"pattern_kind": true,
		}
		if knownKeywordFields[sortField] {
			sortField = fmt.Sprintf("%s.keyword", req.SortBy)
		} else if sortField != "confidence" && sortField != "line_number" {
			log.Warn().Str("sort_field", req.SortBy).Msg("Attempting to sort on unknown field")
		}
	}

	searchRequest := &search.Request{
		Query: &types.Query{
			Bool: &types.BoolQuery{
				Filter: queryParts,
			},
		},
		Size: &req.Size,
		From: &from,
		Sort: []types.SortCombinations{
			types.SortOptions{
				SortOptions: map[string]types.FieldSort{
					sortField: {Order: &order},
				},
			},
		},
	}

	res, err := r.esTypedClient.Search().
		Index(indexPattern).
		Request(searchRequest).
		Do(ctx)

	if err != nil {
		log.Error().Err(err).Msg("Error executing Elasticsearch search via TypedClient")
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}

	events := make([]model.LogEvent, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var event model.LogEvent
		if hit.Source_ != nil {
			if err := json.Unmarshal(hit.Source_, &event); err != nil {
				log.Error().Err(err).Msg("Error unmarshalling Elasticsearch hit source")
				continue
			}
			events = append(events, event)
		}
	}

	response := &dto.EventSearchResponse{
		Events:     events,
		TotalCount: res.Hits.Total.Value,
		Page:       req.Page,
		Size:       req.Size,
	}

	log.Debug().Int64("total_hits", response.TotalCount).Int("returned_hits", len(response.Events)).Msg("Elasticsearch search successful")
	return response, nil
}

func appendTermsFilter(parts []types.Query, field string, values []string) []types.Query {
	if len(values) == 0 {
		return parts
	}
	terms := make([]types.FieldValue, len(values))
	for i, v := range values {
		terms[i] = v
	}
	return append(parts, types.Query{
		Terms: &types.TermsQuery{
			TermsQuery: map[string]types.TermsQueryField{
				field: terms,
			},
		},
	})
}
