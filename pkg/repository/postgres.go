package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"

	"github.com/marvin-labs/memoria/pkg/model"
)

// Postgres implements TweetStore and PersonaStore over a Supabase/Postgres
// database. Tweets land in tweets_cache via an external fetcher; this store
// only reads candidates and stamps them processed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres connection")
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return goerr.Wrap(err, "postgres ping failed")
	}
	return nil
}

const listCandidatesQuery = `
	SELECT id, tweet_id, tweet_text, COALESCE(tweet_url, ''), engagement_score,
	       COALESCE(public_metrics, '{}'::jsonb), COALESCE(vibe_tags, ''),
	       created_at, fetched_at
	FROM tweets_cache
	WHERE processed_at IS NULL
	  AND engagement_score >= $1
	ORDER BY engagement_score DESC
	LIMIT $2
`

func (p *Postgres) ListCandidates(ctx context.Context, limit int, minEngagement float64) ([]*model.Tweet, error) {
	rows, err := p.db.QueryContext(ctx, listCandidatesQuery, minEngagement, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list candidate tweets")
	}
	defer rows.Close()

	var tweets []*model.Tweet
	for rows.Next() {
		var t model.Tweet
		if err := rows.Scan(
			&t.ID,
			&t.TweetID,
			&t.Text,
			&t.URL,
			&t.EngagementScore,
			&t.PublicMetrics,
			&t.VibeTags,
			&t.CreatedAt,
			&t.FetchedAt,
		); err != nil {
			return nil, goerr.Wrap(err, "failed to scan tweet row")
		}
		tweets = append(tweets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "error iterating tweet rows")
	}

	return tweets, nil
}

func (p *Postgres) MarkProcessed(ctx context.Context, id int64, memoryIDs []model.MemoryID) error {
	ids := make([]string, len(memoryIDs))
	for i, m := range memoryIDs {
		ids[i] = string(m)
	}

	result, err := p.db.ExecContext(ctx, `
		UPDATE tweets_cache
		SET processed_at = NOW(), memory_ids = $2
		WHERE id = $1
	`, id, pq.Array(ids))
	if err != nil {
		return goerr.Wrap(err, "failed to mark tweet processed", goerr.V("id", id))
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return goerr.New("no such tweet", goerr.V("id", id))
	}

	return nil
}

const latestPersonaQuery = `
	SELECT id, name, version, COALESCE(topics, '{}'), COALESCE(style, '')
	FROM character_files
	ORDER BY version DESC
	LIMIT 1
`

// Get returns the latest version of the character definition.
func (p *Postgres) Get(ctx context.Context) (*model.Persona, error) {
	var persona model.Persona
	var topics []string
	err := p.db.QueryRowContext(ctx, latestPersonaQuery).Scan(
		&persona.ID,
		&persona.Name,
		&persona.Version,
		pq.Array(&topics),
		&persona.Style,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrPersonaNotFound, "character_files table is empty")
		}
		return nil, goerr.Wrap(err, "failed to load character definition")
	}
	persona.Topics = topics

	return &persona, nil
}
