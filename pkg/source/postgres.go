package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const defaultPageSize = 500

var sqlIdentRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Selector is the part of sqlx.DB the Postgres source uses
type Selector interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// PostgresConfig names the table holding descriptions
type PostgresConfig struct {
	Table             string
	IDColumn          string
	DescriptionColumn string
	PageSize          int
	Name              string
}

type descriptionRow struct {
	Description sql.NullString `db:"description"`
}

// PostgresSource pages through a description table ordered by its id column
type PostgresSource struct {
	db     Selector
	cfg    PostgresConfig
	logger ectologger.Logger
}

// Connect opens a Postgres connection pool
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSource creates a Postgres source. Table and column names are validated
// identifiers.
func NewPostgresSource(db Selector, cfg PostgresConfig, logger ectologger.Logger) (*PostgresSource, error) {
	for field, ident := range map[string]string{
		"DB_TABLE":     cfg.Table,
		"DB_ID_COLUMN": cfg.IDColumn,
		"INPUT_COLUMN": cfg.DescriptionColumn,
	} {
		if !sqlIdentRegex.MatchString(ident) {
			return nil, bramerrors.NewConfigError("environment", fmt.Sprintf("invalid SQL identifier %q", ident)).AddField(field)
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Table
	}
	return &PostgresSource{db: db, cfg: cfg, logger: logger}, nil
}

func (s *PostgresSource) Name() string {
	return s.cfg.Name
}

func (s *PostgresSource) pageQuery(offset int) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sb.As(s.cfg.DescriptionColumn, "description"))
	sb.From(s.cfg.Table)
	sb.OrderBy(s.cfg.IDColumn).Asc()
	sb.Limit(s.cfg.PageSize)
	sb.Offset(offset)
	return sb.Build()
}

func (s *PostgresSource) Read(ctx context.Context, fn func(rec models.InputRecord) error) error {
	ctx, span := tracing.StartSpan(ctx, "source.PostgresSource.Read")
	defer span.End()

	row := 0
	for {
		query, args := s.pageQuery(row)
		var page []descriptionRow
		if err := s.db.SelectContext(ctx, &page, query, args...); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"table":  s.cfg.Table,
				"offset": row,
			}).Error("Failed to read descriptions")
			return fmt.Errorf("failed to read descriptions from %s: %w", s.cfg.Table, err)
		}

		for _, r := range page {
			row++
			if err := fn(models.InputRecord{RowIndex: row, Description: r.Description.String}); err != nil {
				return err
			}
		}
		if len(page) < s.cfg.PageSize {
			return nil
		}
	}
}
