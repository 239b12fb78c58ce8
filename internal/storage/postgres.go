package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/source"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Search records ---

// CreateSearchRecord appends one immutable audit entry. The database
// assigns seq from a bigserial so records committed in the same
// microsecond still have a total order.
func (s *PostgresStore) CreateSearchRecord(ctx context.Context, rec *models.SearchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO search_records (id, user_id, search_type, faces_detected, total_matches, degraded_sources, image_hash, result_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING seq, created_at`,
		rec.ID, rec.UserID, rec.SearchType, rec.FacesDetected, rec.TotalMatches,
		rec.DegradedSources, rec.ImageHash, rec.ResultKey,
	).Scan(&rec.Seq, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create search record: %w", err)
	}
	return nil
}

// ListSearchRecords returns a user's history page, newest first. The
// before cursor is exclusive; a nil cursor starts at the newest record.
func (s *PostgresStore) ListSearchRecords(ctx context.Context, userID string, limit int, before *time.Time) ([]models.SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := `SELECT id, seq, user_id, search_type, faces_detected, total_matches, degraded_sources, image_hash, result_key, created_at
	          FROM search_records WHERE user_id = $1`
	args := []interface{}{userID}
	if before != nil {
		query += ` AND created_at < $2 ORDER BY created_at DESC, seq DESC LIMIT $3`
		args = append(args, *before, limit)
	} else {
		query += ` ORDER BY created_at DESC, seq DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list search records: %w", err)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		var rec models.SearchRecord
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.UserID, &rec.SearchType, &rec.FacesDetected,
			&rec.TotalMatches, &rec.DegradedSources, &rec.ImageHash, &rec.ResultKey, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetSearchRecord returns one record, or nil when the id is unknown or
// belongs to another user.
func (s *PostgresStore) GetSearchRecord(ctx context.Context, userID string, id uuid.UUID) (*models.SearchRecord, error) {
	rec := &models.SearchRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, seq, user_id, search_type, faces_detected, total_matches, degraded_sources, image_hash, result_key, created_at
		 FROM search_records WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&rec.ID, &rec.Seq, &rec.UserID, &rec.SearchType, &rec.FacesDetected,
		&rec.TotalMatches, &rec.DegradedSources, &rec.ImageHash, &rec.ResultKey, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get search record: %w", err)
	}
	return rec, nil
}

// DeleteSearchRecordsBefore removes records older than the cutoff and
// returns the object-store keys of their archived results so the caller
// can purge those too.
func (s *PostgresStore) DeleteSearchRecordsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM search_records WHERE created_at < $1 RETURNING result_key`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete search records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan result key: %w", err)
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// --- Watchlist persons ---

func (s *PostgresStore) CreatePerson(ctx context.Context, name, notes string, metadata json.RawMessage) (*models.Person, error) {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	p := &models.Person{
		ID:       uuid.New(),
		Name:     name,
		Notes:    notes,
		Metadata: metadata,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO persons (id, name, notes, metadata) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Notes, p.Metadata,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, notes, metadata, created_at, updated_at FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Notes, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, notes, metadata, created_at, updated_at FROM persons ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Notes, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

func (s *PostgresStore) DeletePerson(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person not found")
	}
	return nil
}

// --- Face embeddings ---

func (s *PostgresStore) AddFaceEmbedding(ctx context.Context, personID uuid.UUID, embedding []float32, quality float32, sourceKey string) (*models.FaceEmbedding, error) {
	fe := &models.FaceEmbedding{
		ID:        uuid.New(),
		PersonID:  personID,
		Embedding: embedding,
		Quality:   quality,
		SourceKey: sourceKey,
	}
	vec := pgvector.NewVector(embedding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_embeddings (id, person_id, embedding, quality, source_key) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		fe.ID, fe.PersonID, vec, fe.Quality, fe.SourceKey,
	).Scan(&fe.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add face embedding: %w", err)
	}
	return fe, nil
}

func (s *PostgresStore) DeleteFaceEmbedding(ctx context.Context, personID, faceID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM face_embeddings WHERE id = $1 AND person_id = $2`, faceID, personID)
	if err != nil {
		return fmt.Errorf("delete face embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face embedding not found")
	}
	return nil
}

func (s *PostgresStore) ListFaceEmbeddings(ctx context.Context, personID uuid.UUID) ([]models.FaceEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, person_id, quality, source_key, created_at FROM face_embeddings WHERE person_id = $1 ORDER BY created_at DESC`,
		personID)
	if err != nil {
		return nil, fmt.Errorf("list face embeddings: %w", err)
	}
	defer rows.Close()

	var faces []models.FaceEmbedding
	for rows.Next() {
		var fe models.FaceEmbedding
		if err := rows.Scan(&fe.ID, &fe.PersonID, &fe.Quality, &fe.SourceKey, &fe.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		faces = append(faces, fe)
	}
	return faces, nil
}

func (s *PostgresStore) CountFaces(ctx context.Context, personID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM face_embeddings WHERE person_id = $1`, personID,
	).Scan(&count)
	return count, err
}

// SearchFaces runs a cosine KNN over enrolled embeddings and keeps the
// best hit per person. It satisfies source.FaceSearcher.
func (s *PostgresStore) SearchFaces(ctx context.Context, embedding []float32, threshold float64, limit int) ([]source.FaceMatch, error) {
	if limit <= 0 {
		limit = 50
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (fe.person_id)
		       fe.person_id, p.name, p.notes, fe.source_key,
		       1 - (fe.embedding <=> $1) AS similarity
		FROM face_embeddings fe
		JOIN persons p ON p.id = fe.person_id
		WHERE 1 - (fe.embedding <=> $1) >= $2
		ORDER BY fe.person_id, fe.embedding <=> $1
		LIMIT $3`,
		vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search faces: %w", err)
	}
	defer rows.Close()

	var matches []source.FaceMatch
	for rows.Next() {
		var m source.FaceMatch
		var personID uuid.UUID
		if err := rows.Scan(&personID, &m.Name, &m.PersonNotes, &m.SourceKey, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan face match: %w", err)
		}
		m.PersonID = personID.String()
		matches = append(matches, m)
	}
	return matches, nil
}

// --- Admin statistics ---

// SystemStats is the aggregate view behind the admin stats endpoint.
type SystemStats struct {
	TotalSearches    int64            `json:"total_searches"`
	SearchesByType   map[string]int64 `json:"searches_by_type"`
	DistinctUsers    int64            `json:"distinct_users"`
	EnrolledPersons  int64            `json:"enrolled_persons"`
	EnrolledFaces    int64            `json:"enrolled_faces"`
	OldestRecordedAt *time.Time       `json:"oldest_recorded_at,omitempty"`
}

func (s *PostgresStore) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{SearchesByType: make(map[string]int64)}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id), MIN(created_at)
		FROM search_records`,
	).Scan(&stats.TotalSearches, &stats.DistinctUsers, &stats.OldestRecordedAt)
	if err != nil {
		return nil, fmt.Errorf("search record stats: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT search_type, COUNT(*) FROM search_records GROUP BY search_type`)
	if err != nil {
		return nil, fmt.Errorf("searches by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan search type count: %w", err)
		}
		stats.SearchesByType[t] = n
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM persons`).Scan(&stats.EnrolledPersons); err != nil {
		return nil, fmt.Errorf("count persons: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM face_embeddings`).Scan(&stats.EnrolledFaces); err != nil {
		return nil, fmt.Errorf("count face embeddings: %w", err)
	}

	return stats, nil
}
