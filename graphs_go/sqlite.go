package graphs_go

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

func openSQLite(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// LoadGraphFromSQLite reads the nodes and edges tables written by SaveSQLite.
// Rows are read in insertion order so parallel-edge keys are reproduced.
func LoadGraphFromSQLite(path string) (*Graph, error) {
	// sql.Open would silently create an empty database.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("could not open graph database: %w", err)
	}
	conn, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx := context.Background()
	g := NewGraph()

	rows, err := conn.QueryContext(ctx, `SELECT id, latitude, longitude, street_count FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Latitude, &n.Longitude, &n.StreetCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		g.AddNode(n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if g.NodeCount() == 0 {
		return nil, ErrEmptyNetwork
	}

	rows, err = conn.QueryContext(ctx, `SELECT from_id, to_id, length, max_speed, name, baseline_cost FROM edges ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Length, &e.MaxSpeed, &e.Name, &e.BaselineCost); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if _, err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, rows.Err()
}

// SaveSQLite writes g to a SQLite database at path, replacing any network
// already stored there.
func SaveSQLite(ctx context.Context, g *Graph, path string) error {
	conn, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return err
	}

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (id, latitude, longitude, street_count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, id := range g.order {
		n := g.nodes[id]
		if _, err := nodeStmt.ExecContext(ctx, n.ID, n.Latitude, n.Longitude, n.StreetCount); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (from_id, to_id, length, max_speed, name, baseline_cost) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	var insertErr error
	g.ForEachEdge(func(e Edge) {
		if insertErr != nil {
			return
		}
		if _, err := edgeStmt.ExecContext(ctx, e.FromID, e.ToID, e.Length, e.MaxSpeed, e.Name, e.BaselineCost); err != nil {
			insertErr = fmt.Errorf("failed to insert edge %s: %w", e.Ref(), err)
		}
	})
	if insertErr != nil {
		return insertErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit network: %w", err)
	}
	return nil
}
