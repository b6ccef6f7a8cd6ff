package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/schema"
	"github.com/soundprediction/sifter/pkg/types"
)

// Neo4jDriver stores records as :Record nodes keyed by (entity, id). Scalar
// fields are node properties; relation fields, as declared by the schema, are
// LINK relationships carrying the field name.
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	database string
	schema   *schema.Schema
	logger   *slog.Logger
}

// NewNeo4jDriver connects to Neo4j and ensures the record index exists.
func NewNeo4jDriver(ctx context.Context, uri, username, password, database string, sch *schema.Schema, logger *slog.Logger) (*Neo4jDriver, error) {
	if sch == nil {
		return nil, fmt.Errorf("neo4j driver requires a schema")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}

	n := &Neo4jDriver{client: client, database: database, schema: sch, logger: logger}
	if err := client.VerifyConnectivity(ctx); err != nil {
		client.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	if err := n.CreateIndices(ctx); err != nil {
		client.Close(ctx)
		return nil, err
	}
	return n, nil
}

func (n *Neo4jDriver) Provider() Provider { return ProviderNeo4j }

func (n *Neo4jDriver) Close() error {
	return n.client.Close(context.Background())
}

// CreateIndices creates the lookup index on (entity, id).
func (n *Neo4jDriver) CreateIndices(ctx context.Context) error {
	_, err := n.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `CREATE INDEX record_entity_id IF NOT EXISTS FOR (n:Record) ON (n.entity, n.id)`, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	return nil
}

func (n *Neo4jDriver) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

func (n *Neo4jDriver) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

const upsertRecordQuery = `
	MERGE (n:Record {entity: $entity, id: $id})
	SET n = $props
	WITH n
	OPTIONAL MATCH (n)-[old:LINK]->()
	DELETE old
	WITH DISTINCT n
	UNWIND $links AS link
	MERGE (m:Record {entity: link.entity, id: link.id})
	MERGE (n)-[:LINK {field: link.field}]->(m)
`

// Upsert writes records and replaces their outgoing links. Related records
// that do not exist yet are created as bare nodes.
func (n *Neo4jDriver) Upsert(ctx context.Context, records ...*types.Record) error {
	if err := validateAll(records); err != nil {
		return err
	}
	params := make([]map[string]any, len(records))
	for i, r := range records {
		p, err := n.recordParams(r)
		if err != nil {
			return err
		}
		params[i] = p
	}

	_, err := n.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, p := range params {
			if _, err := tx.Run(ctx, upsertRecordQuery, p); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}
	return nil
}

func (n *Neo4jDriver) recordParams(r *types.Record) (map[string]any, error) {
	entity, err := n.schema.Entity(r.Entity)
	if err != nil {
		return nil, err
	}
	props := make(map[string]any, len(r.Values)+3)
	var links []map[string]any
	for name, v := range r.Values {
		f, ok := entity.Field(name)
		if ok && f.Relation != "" {
			for _, id := range relationIDs(v) {
				links = append(links, map[string]any{"field": name, "entity": f.Relation, "id": id})
			}
			continue
		}
		if v != nil {
			props[name] = v
		}
	}
	// Identity goes last so no field value can shadow it.
	props["entity"] = r.Entity
	props["id"] = r.ID
	props["display"] = r.Display
	if links == nil {
		links = []map[string]any{}
	}
	return map[string]any{"entity": r.Entity, "id": r.ID, "props": props, "links": links}, nil
}

const recordReturn = `RETURN n0, [(n0)-[l:LINK]->(m:Record) | [l.field, m.id]] AS links`

// Get reads one record with its links.
func (n *Neo4jDriver) Get(ctx context.Context, entity string, id int64) (*types.Record, error) {
	result, err := n.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n0:Record {entity: $entity, id: $id}) `+recordReturn,
			map[string]any{"entity": entity, "id": id})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	rows := result.([]*db.Record)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	return n.recordFromRow(entity, rows[0])
}

// Delete removes a record and its links.
func (n *Neo4jDriver) Delete(ctx context.Context, entity string, id int64) error {
	result, err := n.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Record {entity: $entity, id: $id})
			WITH n, n.id AS id
			DETACH DELETE n
			RETURN count(id) AS deleted`,
			map[string]any{"entity": entity, "id": id})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return recordInt64(rec, "deleted")
	})
	if err != nil {
		return err
	}
	if result.(int64) == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	return nil
}

// Stats counts records per entity.
func (n *Neo4jDriver) Stats(ctx context.Context) (*Stats, error) {
	result, err := n.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n:Record) RETURN n.entity AS entity, count(n) AS total`, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByEntity: make(map[string]int64)}
	for _, rec := range result.([]*db.Record) {
		entity, err := recordString(rec, "entity")
		if err != nil {
			return nil, err
		}
		total, err := recordInt64(rec, "total")
		if err != nil {
			return nil, err
		}
		stats.ByEntity[entity] = total
		stats.Records += total
	}
	return stats, nil
}

// Instances lists the records of entity as options.
func (n *Neo4jDriver) Instances(ctx context.Context, entity string) ([]types.Option, error) {
	result, err := n.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Record {entity: $entity})
			RETURN n.id AS id, n.display AS display
			ORDER BY n.id`,
			map[string]any{"entity": entity})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	rows := result.([]*db.Record)
	options := make([]types.Option, 0, len(rows))
	for _, rec := range rows {
		id, err := recordInt64(rec, "id")
		if err != nil {
			return nil, err
		}
		display, err := recordString(rec, "display")
		if err != nil {
			return nil, err
		}
		options = append(options, types.Option{ID: strconv.FormatInt(id, 10), Label: display})
	}
	return options, nil
}

// Execute runs the compiled predicate as a count query and a page query.
func (n *Neo4jDriver) Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error) {
	cond, params, err := CompileCypher(p)
	if err != nil {
		return nil, fmt.Errorf("failed to compile predicate: %w", err)
	}
	params["entity"] = entity
	match := `MATCH (n0:Record {entity: $entity}) WHERE ` + cond

	pageQuery := match + " " + recordReturn + " ORDER BY n0.id SKIP $skip"
	params["skip"] = int64(max(page.Offset, 0))
	if page.Limit > 0 {
		pageQuery += " LIMIT $limit"
		params["limit"] = int64(page.Limit)
	}

	type rows struct {
		total   int64
		records []*db.Record
	}
	result, err := n.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, match+" RETURN count(n0) AS total", params)
		if err != nil {
			return nil, err
		}
		single, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		total, err := recordInt64(single, "total")
		if err != nil {
			return nil, err
		}
		res, err = tx.Run(ctx, pageQuery, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return rows{total: total, records: records}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	out := result.(rows)
	rs := &types.ResultSet{Records: make([]types.Record, 0, len(out.records)), Count: int(out.total)}
	for _, row := range out.records {
		rec, err := n.recordFromRow(entity, row)
		if err != nil {
			return nil, err
		}
		rs.Records = append(rs.Records, *rec)
	}
	n.logger.Debug("neo4j search", "entity", entity, "predicate", p.String(), "count", rs.Count)
	return rs, nil
}

// recordFromRow rebuilds a record from a node and its [field, id] links.
func (n *Neo4jDriver) recordFromRow(entity string, row *db.Record) (*types.Record, error) {
	node, err := recordNode(row, "n0")
	if err != nil {
		return nil, err
	}
	links, err := recordList(row, "links")
	if err != nil {
		return nil, err
	}

	rec := &types.Record{Entity: entity, Values: make(map[string]any, len(node.Props))}
	for k, v := range node.Props {
		switch k {
		case "entity":
		case "id":
			id, ok := v.(int64)
			if !ok {
				return nil, conversionError("int64", v, "id")
			}
			rec.ID = id
		case "display":
			rec.Display, _ = v.(string)
		default:
			rec.Values[k] = v
		}
	}

	def, _ := n.schema.Entity(entity)
	for _, l := range links {
		pair, ok := l.([]any)
		if !ok || len(pair) != 2 {
			return nil, conversionError("[field, id]", l, "links")
		}
		field, _ := pair[0].(string)
		id, ok := pair[1].(int64)
		if !ok {
			return nil, conversionError("int64", pair[1], "links")
		}
		multiple := true
		if def != nil {
			if f, ok := def.Field(field); ok {
				multiple = f.Multiple
			}
		}
		if multiple {
			ids, _ := rec.Values[field].([]int64)
			rec.Values[field] = append(ids, id)
		} else {
			rec.Values[field] = id
		}
	}
	return rec, nil
}
