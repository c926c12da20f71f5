// Package graph provides the Neo4j/Memgraph store and the idempotent upsert engine
package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Dialect selects the constraint syntax of the backend
type Dialect string

const (
	DialectNeo4j    Dialect = "neo4j"
	DialectMemgraph Dialect = "memgraph"
)

var (
	labelRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	keyRegex   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Client wraps the Neo4j driver and implements Store
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	dialect  Dialect
	logger   ectologger.Logger
}

// Config holds graph database configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	Dialect  Dialect
}

// NewClient creates a new graph database client
func NewClient(cfg Config, logger ectologger.Logger) (*Client, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}

	dialect := cfg.Dialect
	if dialect == "" {
		dialect = DialectNeo4j
	}

	return &Client{
		driver:   driver,
		database: cfg.Database,
		dialect:  dialect,
		logger:   logger,
	}, nil
}

// Close closes the driver connection
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// VerifyConnectivity checks if the database is reachable
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) session(ctx context.Context, accessMode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   accessMode,
		DatabaseName: c.database,
	})
}

// ExecuteWrite runs a statement in a managed write transaction
func (c *Client) ExecuteWrite(ctx context.Context, statement string, params map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.ExecuteWrite")
	defer span.End()

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// ExecuteRead runs a statement in a managed read transaction
func (c *Client) ExecuteRead(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.ExecuteRead")
	defer span.End()

	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]map[string]any, 0, len(records))
		for _, record := range records {
			row := record.AsMap()
			for k, v := range row {
				row[k] = plainValue(v)
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return rows.([]map[string]any), nil
}

// DeclareUniqueConstraint declares a uniqueness constraint in auto-commit mode
func (c *Client) DeclareUniqueConstraint(ctx context.Context, label string, keys ...string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.DeclareUniqueConstraint")
	defer span.End()

	statement, err := constraintStatement(c.dialect, label, keys...)
	if err != nil {
		return err
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, statement, nil)
	if err == nil {
		_, err = result.Consume(ctx)
	}
	if err != nil && c.dialect == DialectMemgraph && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"label": label,
			"keys":  keys,
		}).Debug("Constraint already exists")
		return nil
	}
	return err
}

// constraintStatement renders a uniqueness constraint for the dialect. label and keys
// are validated identifiers; they cannot be parameters in schema statements.
func constraintStatement(dialect Dialect, label string, keys ...string) (string, error) {
	if !labelRegex.MatchString(label) {
		return "", fmt.Errorf("invalid constraint label %q", label)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("constraint on %s needs at least one key", label)
	}
	props := make([]string, 0, len(keys))
	for _, key := range keys {
		if !keyRegex.MatchString(key) {
			return "", fmt.Errorf("invalid constraint key %q", key)
		}
		props = append(props, "n."+key)
	}

	switch dialect {
	case DialectMemgraph:
		return fmt.Sprintf("CREATE CONSTRAINT ON (n:%s) ASSERT %s IS UNIQUE", label, strings.Join(props, ", ")), nil
	case DialectNeo4j, "":
		target := props[0]
		if len(props) > 1 {
			target = "(" + strings.Join(props, ", ") + ")"
		}
		return fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE %s IS UNIQUE", label, target), nil
	}
	return "", fmt.Errorf("unsupported dialect %q", dialect)
}

// plainValue converts driver graph types into maps and lists
func plainValue(val any) any {
	switch v := val.(type) {
	case neo4j.Node:
		return v.Props
	case neo4j.Relationship:
		return v.Props
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
