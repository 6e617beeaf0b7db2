package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/invoice-extractor/internal/config"
	"github.com/dvloznov/invoice-extractor/internal/logger"
)

// Migration is one numbered SQL file, already rendered for a project and dataset.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// Target identifies where migrations are applied.
type Target struct {
	ProjectID string
	DatasetID string
}

func (t Target) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.DatasetID, name)
}

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	log := logger.New()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Load()

	projectID := flag.String("project", cfg.BQProject, "GCP project ID (default: BQ_PROJECT)")
	datasetID := flag.String("dataset", cfg.BQDataset, "BigQuery dataset ID (default: BQ_DATASET)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir := flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag or BQ_PROJECT is required")
	}
	target := Target{ProjectID: *projectID, DatasetID: *datasetID}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := bigquery.NewClient(ctx, target.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().
		Str("project", target.ProjectID).
		Str("dataset", target.DatasetID).
		Msg("Connected to BigQuery")

	if err := runQuery(ctx, client, schemaMigrationsDDL(target), nil); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	migrations, err := readMigrations(*migrationsDir, target)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	applied, err := appliedVersions(ctx, client, target)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}

	pending := pendingMigrations(migrations, applied)
	log.Info().
		Int("found", len(migrations)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Migrations loaded")

	for _, m := range pending {
		mlog := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		mlog.Info().Msg("Applying migration")

		if err := runQuery(ctx, client, m.SQL, nil); err != nil {
			mlog.Fatal().Err(err).Msg("Migration failed")
		}
		if err := recordMigration(ctx, client, target, m, *appliedBy); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to record migration")
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply")
	} else {
		log.Info().Int("count", len(pending)).Msg("Migrations applied")
	}
}

func schemaMigrationsDDL(t Target) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, t.table("schema_migrations"))
}

// parseMigrationFilename splits "0001_name.sql" into its version and name.
func parseMigrationFilename(filename string) (int, string, bool) {
	m := migrationFilePattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// renderSQL fills the {{PROJECT_ID}} and {{DATASET_ID}} placeholders.
func renderSQL(content string, t Target) string {
	sql := strings.ReplaceAll(content, "{{PROJECT_ID}}", t.ProjectID)
	return strings.ReplaceAll(sql, "{{DATASET_ID}}", t.DatasetID)
}

// readMigrations loads every migration file in dir sorted by version. The
// checksum covers the file before placeholders are filled, so it does not
// change between projects.
func readMigrations(dir string, t Target) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseMigrationFilename(e.Name())
		if !ok {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", e.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: e.Name(),
			SQL:      renderSQL(string(content), t),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func pendingMigrations(all []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

func appliedVersions(ctx context.Context, client *bigquery.Client, t Target) (map[int]bool, error) {
	q := client.Query(fmt.Sprintf(`SELECT version FROM %s`, t.table("schema_migrations")))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]bool)
	for {
		var row struct{ Version int64 }
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		applied[int(row.Version)] = true
	}

	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, t Target, m Migration, appliedBy string) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, t.table("schema_migrations"))

	return runQuery(ctx, client, sql, []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	})
}

func runQuery(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	q := client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
