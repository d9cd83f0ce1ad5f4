package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veracity-io/veracity/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpus_texts (
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (entity_type, entity_id)
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		embedding BLOB NOT NULL,
		model_name TEXT NOT NULL,
		model_version TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		PRIMARY KEY (entity_type, entity_id)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_tenant ON embeddings(tenant_id, entity_type);

	CREATE TABLE IF NOT EXISTS nli_results (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		evidence_id TEXT NOT NULL,
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		entailment_score REAL NOT NULL,
		contradiction_score REAL NOT NULL,
		neutral_score REAL NOT NULL,
		model_name TEXT NOT NULL,
		model_version TEXT NOT NULL,
		premise_text TEXT,
		hypothesis_text TEXT,
		UNIQUE (claim_id, evidence_id, model_version)
	);

	CREATE INDEX IF NOT EXISTS idx_nli_claim ON nli_results(claim_id);

	CREATE TABLE IF NOT EXISTS verification_results (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		verdict TEXT NOT NULL,
		confidence REAL NOT NULL,
		support_score REAL NOT NULL,
		refute_score REAL NOT NULL,
		neutral_score REAL NOT NULL,
		evidence_count INTEGER NOT NULL,
		supporting_evidence_count INTEGER NOT NULL,
		refuting_evidence_count INTEGER NOT NULL,
		neutral_evidence_count INTEGER NOT NULL,
		reasoning TEXT NOT NULL,
		nli_result_ids TEXT NOT NULL,
		pipeline_version TEXT NOT NULL,
		retrieval_method TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verification_claim ON verification_results(claim_id, created_at);

	CREATE TABLE IF NOT EXISTS benchmark_runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		params TEXT NOT NULL,
		metrics TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_benchmark_name ON benchmark_runs(name, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveClaim inserts or replaces a claim text.
func (s *SQLiteStore) SaveClaim(ctx context.Context, claim model.Claim) error {
	return s.saveText(ctx, model.EntityClaim, claim.ID, claim.TenantID, claim.Text)
}

// GetClaim returns a claim by id.
func (s *SQLiteStore) GetClaim(ctx context.Context, id string) (model.Claim, error) {
	tenant, text, err := s.getText(ctx, model.EntityClaim, id)
	if err != nil {
		return model.Claim{}, err
	}
	return model.Claim{ID: id, TenantID: tenant, Text: text}, nil
}

// SaveEvidence inserts or replaces an evidence text.
func (s *SQLiteStore) SaveEvidence(ctx context.Context, doc model.EvidenceDoc) error {
	return s.saveText(ctx, model.EntityEvidence, doc.ID, doc.TenantID, doc.Text)
}

// GetEvidence returns an evidence item by id.
func (s *SQLiteStore) GetEvidence(ctx context.Context, id string) (model.EvidenceDoc, error) {
	tenant, text, err := s.getText(ctx, model.EntityEvidence, id)
	if err != nil {
		return model.EvidenceDoc{}, err
	}
	return model.EvidenceDoc{ID: id, TenantID: tenant, Text: text}, nil
}

func (s *SQLiteStore) saveText(ctx context.Context, entityType model.EntityType, id, tenantID, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO corpus_texts (entity_type, entity_id, tenant_id, content)
		 VALUES (?, ?, ?, ?)`,
		string(entityType), id, tenantID, content,
	)
	return err
}

func (s *SQLiteStore) getText(ctx context.Context, entityType model.EntityType, id string) (tenantID, content string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT tenant_id, content FROM corpus_texts WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), id,
	).Scan(&tenantID, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("%w: %s %s", ErrNotFound, entityType, id)
	}
	return tenantID, content, err
}

// UpsertEmbedding replaces the embedding row for (entity_type, entity_id).
// Vectors are stored as little-endian float32 blobs; the round trip is
// exact.
func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, emb *model.Embedding) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (entity_type, entity_id, embedding, model_name, model_version, tenant_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(emb.EntityType), emb.EntityID, model.EncodeVector(emb.Vector),
		emb.ModelName, emb.ModelVersion, emb.TenantID,
	)
	return err
}

// GetEmbedding returns the embedding for (entity_type, entity_id).
func (s *SQLiteStore) GetEmbedding(ctx context.Context, entityType model.EntityType, entityID string) (*model.Embedding, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT embedding, model_name, model_version, tenant_id
		 FROM embeddings WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID,
	)

	var blob []byte
	emb := &model.Embedding{EntityType: entityType, EntityID: entityID}
	err := row.Scan(&blob, &emb.ModelName, &emb.ModelVersion, &emb.TenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: embedding %s %s", ErrNotFound, entityType, entityID)
	}
	if err != nil {
		return nil, err
	}
	if emb.Vector, err = model.DecodeVector(blob); err != nil {
		return nil, fmt.Errorf("decode embedding %s: %w", entityID, err)
	}
	return emb, nil
}

// ListEmbeddings returns all embeddings of a type for a tenant, ordered by
// entity id.
func (s *SQLiteStore) ListEmbeddings(ctx context.Context, entityType model.EntityType, tenantID string) ([]*model.Embedding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, embedding, model_name, model_version
		 FROM embeddings WHERE entity_type = ? AND tenant_id = ?
		 ORDER BY entity_id`,
		string(entityType), tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Embedding
	for rows.Next() {
		var blob []byte
		emb := &model.Embedding{EntityType: entityType, TenantID: tenantID}
		if err := rows.Scan(&emb.EntityID, &blob, &emb.ModelName, &emb.ModelVersion); err != nil {
			return nil, err
		}
		if emb.Vector, err = model.DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", emb.EntityID, err)
		}
		out = append(out, emb)
	}
	return out, rows.Err()
}

// SaveNLIResult stores one pairwise entailment record, replacing any prior
// record for the same (claim, evidence, model version).
func (s *SQLiteStore) SaveNLIResult(ctx context.Context, rec *model.PairwiseEntailment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO nli_results
		 (id, claim_id, evidence_id, label, confidence,
		  entailment_score, contradiction_score, neutral_score,
		  model_name, model_version, premise_text, hypothesis_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ClaimID, rec.EvidenceID, string(rec.Label), rec.Confidence,
		rec.EntailmentScore, rec.ContradictionScore, rec.NeutralScore,
		rec.ModelName, rec.ModelVersion, rec.PremiseText, rec.HypothesisText,
	)
	return err
}

// GetNLIResults returns all entailment records for a claim, ordered by
// evidence id.
func (s *SQLiteStore) GetNLIResults(ctx context.Context, claimID string) ([]*model.PairwiseEntailment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, evidence_id, label, confidence,
		        entailment_score, contradiction_score, neutral_score,
		        model_name, model_version, premise_text, hypothesis_text
		 FROM nli_results WHERE claim_id = ? ORDER BY evidence_id`,
		claimID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.PairwiseEntailment
	for rows.Next() {
		rec := &model.PairwiseEntailment{ClaimID: claimID}
		var label string
		if err := rows.Scan(&rec.ID, &rec.EvidenceID, &label, &rec.Confidence,
			&rec.EntailmentScore, &rec.ContradictionScore, &rec.NeutralScore,
			&rec.ModelName, &rec.ModelVersion, &rec.PremiseText, &rec.HypothesisText); err != nil {
			return nil, err
		}
		rec.Label = model.Label(label)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveVerification inserts a verification result. Rows are append-only:
// there is no update path, recomputation gets a fresh id.
func (s *SQLiteStore) SaveVerification(ctx context.Context, result *model.VerificationResult) error {
	ids, err := json.Marshal(result.NLIResultIDs)
	if err != nil {
		return fmt.Errorf("marshal nli result ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_results
		 (id, claim_id, verdict, confidence,
		  support_score, refute_score, neutral_score,
		  evidence_count, supporting_evidence_count, refuting_evidence_count, neutral_evidence_count,
		  reasoning, nli_result_ids, pipeline_version, retrieval_method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.ClaimID, string(result.Verdict), result.Confidence,
		result.SupportScore, result.RefuteScore, result.NeutralScore,
		result.EvidenceCount, result.SupportingEvidenceCount, result.RefutingEvidenceCount, result.NeutralEvidenceCount,
		result.Reasoning, string(ids), result.PipelineVersion, result.RetrievalMethod,
		result.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetVerification returns a verification result by id.
func (s *SQLiteStore) GetVerification(ctx context.Context, id string) (*model.VerificationResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, verdict, confidence,
		        support_score, refute_score, neutral_score,
		        evidence_count, supporting_evidence_count, refuting_evidence_count, neutral_evidence_count,
		        reasoning, nli_result_ids, pipeline_version, retrieval_method, created_at
		 FROM verification_results WHERE id = ?`,
		id,
	)
	result, err := scanVerification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: verification %s", ErrNotFound, id)
	}
	return result, err
}

// ListVerifications returns all verification rows for a claim, oldest
// first, preserving the audit trail across recomputations.
func (s *SQLiteStore) ListVerifications(ctx context.Context, claimID string) ([]*model.VerificationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, verdict, confidence,
		        support_score, refute_score, neutral_score,
		        evidence_count, supporting_evidence_count, refuting_evidence_count, neutral_evidence_count,
		        reasoning, nli_result_ids, pipeline_version, retrieval_method, created_at
		 FROM verification_results WHERE claim_id = ? ORDER BY created_at, id`,
		claimID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.VerificationResult
	for rows.Next() {
		result, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerification(row rowScanner) (*model.VerificationResult, error) {
	result := &model.VerificationResult{}
	var verdict, ids, createdAt string
	if err := row.Scan(&result.ID, &result.ClaimID, &verdict, &result.Confidence,
		&result.SupportScore, &result.RefuteScore, &result.NeutralScore,
		&result.EvidenceCount, &result.SupportingEvidenceCount, &result.RefutingEvidenceCount, &result.NeutralEvidenceCount,
		&result.Reasoning, &ids, &result.PipelineVersion, &result.RetrievalMethod, &createdAt); err != nil {
		return nil, err
	}
	result.Verdict = model.Verdict(verdict)
	if err := json.Unmarshal([]byte(ids), &result.NLIResultIDs); err != nil {
		return nil, fmt.Errorf("unmarshal nli result ids: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	result.CreatedAt = ts
	return result, nil
}

// SaveBenchmarkRun inserts a benchmark run record.
func (s *SQLiteStore) SaveBenchmarkRun(ctx context.Context, run *model.BenchmarkRun) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO benchmark_runs (id, name, params, metrics, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Name, string(params), string(metrics),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetBenchmarkRun returns a benchmark run by id.
func (s *SQLiteStore) GetBenchmarkRun(ctx context.Context, id string) (*model.BenchmarkRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, params, metrics, created_at FROM benchmark_runs WHERE id = ?`, id)
	run, err := scanBenchmarkRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: benchmark run %s", ErrNotFound, id)
	}
	return run, err
}

// LatestBenchmarkRun returns the most recent run with the given name.
func (s *SQLiteStore) LatestBenchmarkRun(ctx context.Context, name string) (*model.BenchmarkRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, params, metrics, created_at FROM benchmark_runs
		 WHERE name = ? ORDER BY created_at DESC, id DESC LIMIT 1`, name)
	run, err := scanBenchmarkRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: benchmark run named %s", ErrNotFound, name)
	}
	return run, err
}

func scanBenchmarkRun(row rowScanner) (*model.BenchmarkRun, error) {
	run := &model.BenchmarkRun{}
	var params, metrics, createdAt string
	if err := row.Scan(&run.ID, &run.Name, &params, &metrics, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = ts
	return run, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
