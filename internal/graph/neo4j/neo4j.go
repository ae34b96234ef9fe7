package neo4j

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/graph"
)

// Neo4jRepository implements graph.Repository using Neo4j. The index is
// (:Library)-[:HAS_FILE]->(:File)-[:EXPORTS]->(:Symbol)-[:REQUIRES]->(:Capability).
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

const (
	clearLibrary = "MATCH (:Library {name: $lib})-[:HAS_FILE]->(f:File) " +
		"OPTIONAL MATCH (f)-[:EXPORTS]->(s:Symbol) " +
		"DETACH DELETE f, s"
	mergeLibrary = "MERGE (l:Library {name: $lib}) SET l.link_name = $link, l.linkage = $linkage"
	mergeFile    = "MATCH (l:Library {name: $lib}) " +
		"MERGE (f:File {library: $lib, key: $key}) SET f.id = $id " +
		"MERGE (l)-[:HAS_FILE]->(f)"
	mergeSymbol = "MATCH (f:File {library: $lib, key: $key}) " +
		"MERGE (s:Symbol {library: $lib, name: $name}) SET s.kind = $kind, s.visibility = $vis " +
		"MERGE (f)-[:EXPORTS]->(s) " +
		"WITH s UNWIND $caps AS cap " +
		"MERGE (c:Capability {name: cap}) " +
		"MERGE (s)-[:REQUIRES]->(c)"
	queryByCapability = "MATCH (:Library {name: $lib})-[:HAS_FILE]->(f:File)-[:EXPORTS]->(s:Symbol)" +
		"-[:REQUIRES]->(:Capability {name: $cap}) " +
		"MATCH (s)-[:REQUIRES]->(c:Capability) " +
		"RETURN f.key AS file, s.name AS name, s.kind AS kind, s.visibility AS visibility, collect(c.name) AS caps " +
		"ORDER BY file, name"
)

func (r *Neo4jRepository) StoreLibrary(ctx context.Context, library string, p *assembler.Package) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	recs := graph.Records(library, p)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, clearLibrary, map[string]any{"lib": library}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, mergeLibrary, map[string]any{
			"lib": library, "link": p.LinkName, "linkage": p.Linkage.String(),
		})
		if err != nil {
			return nil, err
		}
		for _, f := range p.Files() {
			_, err := tx.Run(ctx, mergeFile, map[string]any{
				"lib": library, "key": f.ID.Sanitized(), "id": string(f.ID),
			})
			if err != nil {
				return nil, err
			}
		}
		for _, rec := range recs {
			caps := rec.Capabilities
			if caps == nil {
				caps = []string{}
			}
			_, err := tx.Run(ctx, mergeSymbol, map[string]any{
				"lib": library, "key": rec.File, "name": rec.Name,
				"kind": rec.Kind, "vis": rec.Visibility, "caps": caps,
			})
			if err != nil {
				return nil, fmt.Errorf("symbol %s: %w", rec.Name, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store library %s: %w", library, err)
	}
	return nil
}

func (r *Neo4jRepository) QuerySymbolsByCapability(ctx context.Context, library, capability string) ([]graph.SymbolRecord, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, queryByCapability, map[string]any{"lib": library, "cap": capability})
		if err != nil {
			return nil, err
		}
		var out []graph.SymbolRecord
		for records.Next(ctx) {
			rec := records.Record()
			file, _ := rec.Get("file")
			name, _ := rec.Get("name")
			kind, _ := rec.Get("kind")
			vis, _ := rec.Get("visibility")
			caps, _ := rec.Get("caps")

			sym := graph.SymbolRecord{
				Library:    library,
				File:       asString(file),
				Name:       asString(name),
				Kind:       asString(kind),
				Visibility: asString(vis),
			}
			if list, ok := caps.([]any); ok {
				for _, c := range list {
					if s := asString(c); s != "" {
						sym.Capabilities = append(sym.Capabilities, s)
					}
				}
				sort.Strings(sym.Capabilities)
			}
			out = append(out, sym)
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]graph.SymbolRecord), nil
}

// Ping verifies the database is reachable.
func (r *Neo4jRepository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

var _ graph.Repository = (*Neo4jRepository)(nil)
