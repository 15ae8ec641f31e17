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

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/youngouk/RAG-Standard-sub002/internal/retry"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

// Neo4jStore is the durable multi-process backend. The driver owns a
// shared connection pool; every operation runs in a managed transaction
// (commit on success, rollback on error, session always closed) and
// transient failures retry with exponential backoff.
//
// Relationships are stored as :RELATED edges carrying a type property,
// since Cypher cannot parameterize relationship types.
type Neo4jStore struct {
	driver       neo4j.DriverWithContext
	database     string
	queryTimeout time.Duration
	retryCfg     retry.Config
	logger       *slog.Logger
}

var _ Store = (*Neo4jStore)(nil)

// NewNeo4jStore connects and verifies reachability.
func NewNeo4jStore(cfg *config.Neo4jConfig) (*Neo4jStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j store requires uri")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.ConnectionPool.MaxPoolSize
			c.ConnectionAcquisitionTimeout = time.Duration(cfg.ConnectionPool.AcquisitionTimeout) * time.Second
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j unreachable at %s: %w", cfg.URI, err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Retry.MaxAttempts
	retryCfg.Delay = time.Duration(cfg.Retry.Delay) * time.Millisecond

	return &Neo4jStore{
		driver:       driver,
		database:     cfg.Database,
		queryTimeout: time.Duration(cfg.ConnectionPool.QueryTimeout) * time.Second,
		retryCfg:     retryCfg,
		logger:       slog.Default().With("component", "graph_neo4j"),
	}, nil
}

// write runs a cypher statement in a managed write transaction with retry.
func (s *Neo4jStore) write(ctx context.Context, cypher string, params map[string]any) error {
	return retry.Do(ctx, s.retryCfg, func() error {
		ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()

		session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
		defer session.Close(ctx)

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, cypher, params)
			return nil, err
		})
		return err
	})
}

// read runs a cypher query and collects records with retry.
func (s *Neo4jStore) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	var records []*neo4j.Record
	err := retry.Do(ctx, s.retryCfg, func() error {
		ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()

		session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
		defer session.Close(ctx)

		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			cursor, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return cursor.Collect(ctx)
		})
		if err != nil {
			return err
		}
		records = result.([]*neo4j.Record)
		return nil
	})
	return records, err
}

// AddEntity upserts by id.
func (s *Neo4jStore) AddEntity(ctx context.Context, e Entity) error {
	return s.write(ctx, `
		MERGE (e:Entity {id: $id})
		SET e.name = $name, e.type = $type, e += $props`,
		map[string]any{
			"id":    e.ID,
			"name":  e.Name,
			"type":  e.Type,
			"props": scalarProperties(e.Properties),
		})
}

// AddRelation merges the edge, auto-creating placeholder endpoints.
func (s *Neo4jStore) AddRelation(ctx context.Context, r Relation) error {
	return s.write(ctx, `
		MERGE (s:Entity {id: $source})
		ON CREATE SET s.name = $source, s.type = $unknown
		MERGE (t:Entity {id: $target})
		ON CREATE SET t.name = $target, t.type = $unknown
		MERGE (s)-[rel:RELATED {type: $type}]->(t)
		SET rel.weight = $weight, rel += $props`,
		map[string]any{
			"source":  r.SourceID,
			"target":  r.TargetID,
			"type":    r.Type,
			"weight":  r.Weight,
			"props":   scalarProperties(r.Properties),
			"unknown": TypeUnknown,
		})
}

// GetEntity returns nil for unknown ids.
func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*Entity, error) {
	records, err := s.read(ctx, `
		MATCH (e:Entity {id: $id}) RETURN e`,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	node, ok := records[0].Values[0].(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for entity %s", id)
	}
	e := nodeToEntity(node)
	return &e, nil
}

// GetNeighbors expands a variable-length bidirectional path.
func (s *Neo4jStore) GetNeighbors(ctx context.Context, id string, relationTypes []string, maxDepth int) (*SearchResult, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	// Path length cannot be parameterized in Cypher; maxDepth is a
	// bounded integer from config, not user input.
	cypher := fmt.Sprintf(`
		MATCH path = (s:Entity {id: $id})-[rels:RELATED*1..%d]-(n:Entity)
		WHERE n.id <> $id
		  AND ($types = [] OR all(rel IN rels WHERE rel.type IN $types))
		RETURN DISTINCT n, [rel IN relationships(path) |
		       {source: startNode(rel).id, target: endNode(rel).id,
		        type: rel.type, weight: rel.weight}] AS rels`, maxDepth)

	types := relationTypes
	if types == nil {
		types = []string{}
	}
	records, err := s.read(ctx, cypher, map[string]any{"id": id, "types": types})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{}
	seenEntities := make(map[string]bool)
	seenRelations := make(map[relationKey]bool)

	for _, record := range records {
		node, ok := record.Values[0].(neo4j.Node)
		if !ok {
			continue
		}
		e := nodeToEntity(node)
		if !seenEntities[e.ID] {
			seenEntities[e.ID] = true
			result.Entities = append(result.Entities, e)
		}

		if rels, ok := record.Values[1].([]any); ok {
			for _, raw := range rels {
				relMap, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				converted := mapToRelation(relMap)
				key := relationKey{source: converted.SourceID, target: converted.TargetID, relType: converted.Type}
				if !seenRelations[key] {
					seenRelations[key] = true
					result.Relations = append(result.Relations, converted)
				}
			}
		}
	}

	if len(result.Entities) > 0 {
		result.Score = 1.0
	}
	return result, nil
}

// Search does a case-insensitive name match.
func (s *Neo4jStore) Search(ctx context.Context, query string, entityTypes []string, topK int) (*SearchResult, error) {
	if topK <= 0 {
		return &SearchResult{}, nil
	}

	types := entityTypes
	if types == nil {
		types = []string{}
	}
	records, err := s.read(ctx, `
		MATCH (e:Entity)
		WHERE toLower(e.name) CONTAINS toLower($query)
		  AND ($types = [] OR e.type IN $types)
		RETURN e LIMIT $limit`,
		map[string]any{"query": query, "types": types, "limit": topK})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{}
	for _, record := range records {
		if node, ok := record.Values[0].(neo4j.Node); ok {
			result.Entities = append(result.Entities, nodeToEntity(node))
		}
	}
	if len(result.Entities) > 0 {
		result.Score = 1.0
	}
	return result, nil
}

// Clear drops every entity and relation.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	return s.write(ctx, `MATCH (e:Entity) DETACH DELETE e`, nil)
}

// GetStats counts nodes and edges.
func (s *Neo4jStore) GetStats(ctx context.Context) (Stats, error) {
	records, err := s.read(ctx, `
		MATCH (e:Entity)
		OPTIONAL MATCH (:Entity)-[r:RELATED]->(:Entity)
		RETURN count(DISTINCT e) AS entities, count(DISTINCT r) AS relations`, nil)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Provider: "neo4j"}
	if len(records) > 0 {
		if n, ok := records[0].Values[0].(int64); ok {
			stats.EntityCount = int(n)
		}
		if n, ok := records[0].Values[1].(int64); ok {
			stats.RelationCount = int(n)
		}
	}
	return stats, nil
}

// Close shuts the driver down within the context deadline.
func (s *Neo4jStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.driver.Close(ctx)
}

// HealthCheck is the fast probe; HealthCheckDetailed runs a round-trip
// query.
func (s *Neo4jStore) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.driver.VerifyConnectivity(ctx) == nil
}

// HealthCheckDetailed executes a query through the full session path.
func (s *Neo4jStore) HealthCheckDetailed(ctx context.Context) error {
	_, err := s.read(ctx, `RETURN 1`, nil)
	return err
}

// scalarProperties drops non-scalar values that cypher parameters cannot
// carry.
func scalarProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch v.(type) {
		case string, bool, int, int64, float64, float32:
			out[k] = v
		}
	}
	return out
}

func nodeToEntity(node neo4j.Node) Entity {
	e := Entity{Properties: make(map[string]any)}
	for k, v := range node.Props {
		switch k {
		case "id":
			e.ID, _ = v.(string)
		case "name":
			e.Name, _ = v.(string)
		case "type":
			e.Type, _ = v.(string)
		default:
			e.Properties[k] = v
		}
	}
	return e
}

func mapToRelation(m map[string]any) Relation {
	r := Relation{}
	r.SourceID, _ = m["source"].(string)
	r.TargetID, _ = m["target"].(string)
	r.Type, _ = m["type"].(string)
	r.Weight, _ = m["weight"].(float64)
	return r
}
