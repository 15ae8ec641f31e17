// Copyright 2025 The ragd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/internal/httpclient"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

// WeaviateProvider is the hybrid dense+BM25 backend. It sends both the
// query vector and the textual form; the backend fuses the two rankings
// with the configured alpha. The GraphQL API is called directly.
type WeaviateProvider struct {
	client     *httpclient.Client
	endpoint   string
	alpha      float64
	properties []string
}

var _ Provider = (*WeaviateProvider)(nil)

// NewWeaviateProvider creates the client.
func NewWeaviateProvider(cfg *config.WeaviateConfig) (*WeaviateProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("weaviate provider requires endpoint")
	}

	opts := []httpclient.Option{
		httpclient.WithTimeout(time.Duration(cfg.Timeout) * time.Second),
	}
	if cfg.APIKey != "" {
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	}

	return &WeaviateProvider{
		client:     httpclient.New(opts...),
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		alpha:      cfg.Alpha,
		properties: cfg.Properties,
	}, nil
}

// Name returns the backend identifier.
func (p *WeaviateProvider) Name() string { return "weaviate" }

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data   map[string]map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Search issues a hybrid GraphQL query against the collection class.
func (p *WeaviateProvider) Search(ctx context.Context, collection string, q Query) ([]Result, error) {
	class := className(collection)

	query := fmt.Sprintf(`{
  Get {
    %s(
      hybrid: {query: %s, vector: %s, alpha: %s}
      limit: %d%s
    ) {
      %s
      _additional { id score }
    }
  }
}`,
		class,
		strconv.Quote(q.Text),
		encodeVector(q.Vector),
		strconv.FormatFloat(p.alpha, 'f', -1, 64),
		q.TopK,
		encodeWhere(q.Filter),
		strings.Join(p.properties, "\n      "))

	var resp graphqlResponse
	if err := p.client.PostJSON(ctx, p.endpoint+"/v1/graphql", graphqlRequest{Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query error: %s", resp.Errors[0].Message)
	}

	raw, ok := resp.Data["Get"][class]
	if !ok {
		return nil, nil
	}

	var hits []map[string]any
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("failed to decode weaviate hits: %w", err)
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		result := Result{Metadata: make(map[string]any)}
		for key, value := range hit {
			switch key {
			case "_additional":
				if add, ok := value.(map[string]any); ok {
					if id, ok := add["id"].(string); ok {
						result.ID = id
					}
					// Hybrid scores arrive as strings.
					switch s := add["score"].(type) {
					case string:
						result.Score, _ = strconv.ParseFloat(s, 64)
					case float64:
						result.Score = s
					}
				}
			case "content":
				if s, ok := value.(string); ok {
					result.Content = s
				}
			default:
				result.Metadata[key] = value
			}
		}
		out = append(out, result)
	}
	return out, nil
}

// Upsert adds documents through the batch objects endpoint.
func (p *WeaviateProvider) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	type object struct {
		Class      string         `json:"class"`
		ID         string         `json:"id"`
		Vector     []float32      `json:"vector"`
		Properties map[string]any `json:"properties"`
	}
	objects := make([]object, 0, len(docs))
	for _, doc := range docs {
		props := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			props[k] = v
		}
		props["content"] = doc.Content
		objects = append(objects, object{
			Class:      className(collection),
			ID:         doc.ID,
			Vector:     doc.Vector,
			Properties: props,
		})
	}

	body := map[string]any{"objects": objects}
	if err := p.client.PostJSON(ctx, p.endpoint+"/v1/batch/objects", body, nil); err != nil {
		return fmt.Errorf("weaviate batch upsert failed: %w", err)
	}
	return nil
}

// HealthCheck probes the readiness endpoint.
func (p *WeaviateProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.client.GetJSON(ctx, p.endpoint+"/v1/.well-known/ready", nil) == nil
}

// Close releases the HTTP pool.
func (p *WeaviateProvider) Close() error {
	p.client.Close()
	return nil
}

// className upper-cases the first letter to satisfy weaviate's class
// naming rules.
func className(collection string) string {
	if collection == "" {
		return "Document"
	}
	return strings.ToUpper(collection[:1]) + collection[1:]
}

func encodeVector(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// encodeWhere renders a conjunction filter as a GraphQL where clause.
func encodeWhere(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}
	operands := make([]string, 0, len(filter))
	for key, value := range filter {
		operands = append(operands, fmt.Sprintf(
			`{path: [%s], operator: Equal, valueText: %s}`,
			strconv.Quote(key), strconv.Quote(fmt.Sprint(value))))
	}
	return fmt.Sprintf("\n      where: {operator: And, operands: [%s]}", strings.Join(operands, ", "))
}
