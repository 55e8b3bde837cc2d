// Command replay loads one log file through the detection pipeline
// and indexes the normalized events straight into Elasticsearch,
// bypassing Kafka. Useful for backfilling historical files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"lognorm-backend/config"
	"lognorm-backend/internal/normalize"
	"lognorm-backend/internal/reader"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <logfile> [index]", os.Args[0])
	}
	path := os.Args[1]
	index := "logevents-replay"
	if len(os.Args) > 2 {
		index = os.Args[2]
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		log.Fatalf("Error creating Elasticsearch client: %v", err)
	}

	pipeline, err := normalize.NewPipeline(&cfg.Detection)
	if err != nil {
		log.Fatalf("Error building pipeline: %v", err)
	}

	src, closer, err := reader.Open(path)
	if err != nil {
		log.Fatalf("Error opening input: %v", err)
	}
	defer closer.Close()

	stream, err := pipeline.Run(src, path)
	if err != nil {
		log.Fatalf("Error starting pipeline: %v", err)
	}

	ctx := context.Background()
	indexed := 0

	for {
		event, ok := stream.Next()
		if !ok {
			break
		}

		docJSON, err := json.Marshal(event)
		if err != nil {
			log.Printf("Error marshaling event at line %d: %v", event.LineNumber, err)
			continue
		}

		req := esapi.IndexRequest{
			Index: index,
			Body:  strings.NewReader(string(docJSON)),
		}

		res, err := req.Do(ctx, es)
		if err != nil {
			log.Printf("Error indexing event at line %d: %v", event.LineNumber, err)
			continue
		}
		if res.IsError() {
			log.Printf("Error response from Elasticsearch for line %d: %s", event.LineNumber, res.String())
		} else {
			indexed++
		}
		res.Body.Close()
	}

	if err := stream.Err(); err != nil {
		log.Fatalf("Error reading input: %v", err)
	}

	fmt.Printf("Indexed %d events into %s\n", indexed, index)
}
