package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/graphview/pkg/scene"
)

// schemaSQL creates the scene tables. Root-graph nodes have an empty
// graph_id; nodes of a subgraph carry the id of the owning component.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	id        TEXT PRIMARY KEY,
	graph_id  TEXT NOT NULL DEFAULT '',
	type      TEXT NOT NULL DEFAULT '',
	name      TEXT NOT NULL DEFAULT '',
	parent_id TEXT NOT NULL DEFAULT '',
	ord       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS components (
	id             TEXT PRIMARY KEY,
	node_id        TEXT NOT NULL,
	type           TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	inner_graph_id TEXT,
	ord            INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS properties (
	component_id   TEXT NOT NULL,
	name           TEXT NOT NULL,
	type           TEXT NOT NULL,
	value_json     TEXT,
	default_json   TEXT,
	schema_json    TEXT,
	input          INTEGER NOT NULL DEFAULT 1,
	in_links_json  TEXT,
	out_links_json TEXT,
	ord            INTEGER NOT NULL,
	PRIMARY KEY (component_id, name)
);
`

// SQLiteReader provides read access to a scene database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a scene database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type nodeRow struct {
	doc     scene.NodeDoc
	graphID string
}

type componentRow struct {
	doc    scene.ComponentDoc
	nodeID string
	inner  sql.NullString
}

// LoadScene reads the whole scene and validates it.
func (r *SQLiteReader) LoadScene() (*scene.Document, error) {
	doc := &scene.Document{Version: scene.CurrentVersion}
	if err := r.loadMeta(doc); err != nil {
		return nil, err
	}

	props, err := r.loadProperties()
	if err != nil {
		return nil, err
	}
	comps, err := r.loadComponents(props)
	if err != nil {
		return nil, err
	}
	nodes, err := r.loadNodes()
	if err != nil {
		return nil, err
	}

	doc.Graph = assembleGraph("", nodes, comps, map[string]bool{})
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	return doc, nil
}

func (r *SQLiteReader) loadMeta(doc *scene.Document) error {
	rows, err := r.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return fmt.Errorf("reading scene metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		switch k {
		case "name":
			doc.Name = v
		case "version":
			if n, err := strconv.Atoi(v); err == nil {
				doc.Version = n
			}
		}
	}
	return rows.Err()
}

func (r *SQLiteReader) loadNodes() ([]nodeRow, error) {
	rows, err := r.db.Query(`SELECT id, graph_id, type, name, parent_id FROM nodes ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}
	defer rows.Close()

	var out []nodeRow
	for rows.Next() {
		var n nodeRow
		if err := rows.Scan(&n.doc.ID, &n.graphID, &n.doc.Type, &n.doc.Name, &n.doc.Parent); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteReader) loadComponents(props map[string][]scene.PropertyDoc) ([]componentRow, error) {
	rows, err := r.db.Query(`SELECT id, node_id, type, name, inner_graph_id FROM components ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("reading components: %w", err)
	}
	defer rows.Close()

	var out []componentRow
	for rows.Next() {
		var c componentRow
		if err := rows.Scan(&c.doc.ID, &c.nodeID, &c.doc.Type, &c.doc.Name, &c.inner); err != nil {
			return nil, fmt.Errorf("scanning component: %w", err)
		}
		c.doc.Properties = props[c.doc.ID]
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteReader) loadProperties() (map[string][]scene.PropertyDoc, error) {
	rows, err := r.db.Query(`
		SELECT component_id, name, type, value_json, default_json, schema_json,
		       input, in_links_json, out_links_json
		FROM properties
		ORDER BY component_id, ord
	`)
	if err != nil {
		return nil, fmt.Errorf("reading properties: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]scene.PropertyDoc)
	for rows.Next() {
		var compID string
		var p scene.PropertyDoc
		var input int
		var valueJSON, defaultJSON, schemaJSON, inJSON, outJSON sql.NullString
		if err := rows.Scan(&compID, &p.Name, &p.Type, &valueJSON, &defaultJSON, &schemaJSON,
			&input, &inJSON, &outJSON); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		in := input != 0
		p.Input = &in
		if err := decodeColumn(valueJSON, &p.Value); err != nil {
			return nil, fmt.Errorf("property %s.%s value: %w", compID, p.Name, err)
		}
		if err := decodeColumn(defaultJSON, &p.Default); err != nil {
			return nil, fmt.Errorf("property %s.%s default: %w", compID, p.Name, err)
		}
		if err := decodeColumn(schemaJSON, &p.Schema); err != nil {
			return nil, fmt.Errorf("property %s.%s schema: %w", compID, p.Name, err)
		}
		if err := decodeColumn(inJSON, &p.InLinks); err != nil {
			return nil, fmt.Errorf("property %s.%s in links: %w", compID, p.Name, err)
		}
		if err := decodeColumn(outJSON, &p.OutLinks); err != nil {
			return nil, fmt.Errorf("property %s.%s out links: %w", compID, p.Name, err)
		}
		out[compID] = append(out[compID], p)
	}
	return out, rows.Err()
}

func decodeColumn(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

// assembleGraph rebuilds the nested document from flat rows. visiting
// guards against a component row naming an enclosing graph.
func assembleGraph(graphID string, nodes []nodeRow, comps []componentRow, visiting map[string]bool) scene.GraphDoc {
	var gd scene.GraphDoc
	if visiting[graphID] {
		return gd
	}
	visiting[graphID] = true
	defer delete(visiting, graphID)

	for _, n := range nodes {
		if n.graphID != graphID {
			continue
		}
		nd := n.doc
		for _, c := range comps {
			if c.nodeID != nd.ID {
				continue
			}
			cd := c.doc
			if c.inner.Valid {
				inner := assembleGraph(c.inner.String, nodes, comps, visiting)
				cd.Graph = &inner
			}
			nd.Components = append(nd.Components, cd)
		}
		gd.Nodes = append(gd.Nodes, nd)
	}
	return gd
}

// CountNodes returns the number of nodes across all graphs
func (r *SQLiteReader) CountNodes() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count)
	return count, err
}

// WriteSQLite writes doc to a fresh database at path.
func WriteSQLite(path string, doc *scene.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('name', ?), ('version', ?)`,
		doc.Name, strconv.Itoa(doc.Version)); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	w := &sqliteWriter{tx: tx}
	if err := w.writeGraph("", doc.Graph); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteWriter struct {
	tx      *sql.Tx
	nodeOrd int
	compOrd int
}

func (w *sqliteWriter) writeGraph(graphID string, gd scene.GraphDoc) error {
	for _, n := range gd.Nodes {
		w.nodeOrd++
		if _, err := w.tx.Exec(
			`INSERT INTO nodes (id, graph_id, type, name, parent_id, ord) VALUES (?, ?, ?, ?, ?, ?)`,
			n.ID, graphID, n.Type, n.Name, n.Parent, w.nodeOrd,
		); err != nil {
			return fmt.Errorf("writing node %q: %w", n.ID, err)
		}
		for _, c := range n.Components {
			if err := w.writeComponent(n.ID, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *sqliteWriter) writeComponent(nodeID string, c scene.ComponentDoc) error {
	w.compOrd++
	var inner sql.NullString
	if c.Graph != nil {
		inner = sql.NullString{String: c.ID, Valid: true}
	}
	if _, err := w.tx.Exec(
		`INSERT INTO components (id, node_id, type, name, inner_graph_id, ord) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, nodeID, c.Type, c.Name, inner, w.compOrd,
	); err != nil {
		return fmt.Errorf("writing component %q: %w", c.ID, err)
	}

	for i, p := range c.Properties {
		cols, err := encodeColumns(p.Value, p.Default, p.Schema, p.InLinks, p.OutLinks)
		if err != nil {
			return fmt.Errorf("encoding property %s.%s: %w", c.ID, p.Name, err)
		}
		input := 1
		if p.Input != nil && !*p.Input {
			input = 0
		}
		if _, err := w.tx.Exec(`
			INSERT INTO properties (component_id, name, type, value_json, default_json, schema_json,
			                        input, in_links_json, out_links_json, ord)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, p.Name, p.Type, cols[0], cols[1], cols[2], input, cols[3], cols[4], i,
		); err != nil {
			return fmt.Errorf("writing property %s.%s: %w", c.ID, p.Name, err)
		}
	}

	if c.Graph != nil {
		return w.writeGraph(c.ID, *c.Graph)
	}
	return nil
}

// encodeColumns JSON-encodes property columns. Nil values become NULL.
func encodeColumns(values ...any) ([]sql.NullString, error) {
	out := make([]sql.NullString, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case []int:
			if x == nil {
				continue
			}
		}
		data, err := json.Marshal(scene.JSONSafe(v))
		if err != nil {
			return nil, err
		}
		out[i] = sql.NullString{String: string(data), Valid: true}
	}
	return out, nil
}
