package fecstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/fec/model"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

// ReplaceWithHistory snapshots the current consolidated record (if any)
// into fec_data.consolidated_history and writes the new record, in one
// transaction. A crash can therefore never overwrite a record without its
// prior state having landed in history.
func (s *Store) ReplaceWithHistory(ctx context.Context, key string, rec model.ConsolidatedRecord, snapshotAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "fecstore: begin consolidated replace")
	}
	defer tx.Rollback(ctx)

	var prevJSON []byte
	err = tx.QueryRow(ctx,
		`SELECT row_to_json(c) FROM fec_data.consolidated c WHERE doc_key = $1 FOR UPDATE`,
		key,
	).Scan(&prevJSON)
	if err != nil && !isNoRows(err) {
		return eris.Wrapf(err, "fecstore: read prior consolidated %s", key)
	}

	if prevJSON != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO fec_data.consolidated_history (doc_key, snapshot_at, record)
			 VALUES ($1, $2, $3)`,
			key, snapshotAt, prevJSON,
		); err != nil {
			return eris.Wrapf(err, "fecstore: snapshot consolidated %s", key)
		}
	}

	totalsJSON, err := json.Marshal(rec.PartyTotals)
	if err != nil {
		return eris.Wrapf(err, "fecstore: marshal party totals for %s", key)
	}
	sourcesJSON, err := json.Marshal(rec.DataSources)
	if err != nil {
		return eris.Wrapf(err, "fecstore: marshal data sources for %s", key)
	}
	committeesJSON, err := json.Marshal(rec.PACCommittees)
	if err != nil {
		return eris.Wrapf(err, "fecstore: marshal pac committees for %s", key)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO fec_data.consolidated
		     (doc_key, normalized_name, display_name, stock_ticker, data_year,
		      party_totals, total_contributed_cents, linkage_total_cents, pac_total_cents,
		      has_linkage_data, has_pac_data, data_sources, pac_committees, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		 ON CONFLICT (doc_key) DO UPDATE SET
		     normalized_name         = EXCLUDED.normalized_name,
		     display_name            = EXCLUDED.display_name,
		     stock_ticker            = EXCLUDED.stock_ticker,
		     data_year               = EXCLUDED.data_year,
		     party_totals            = EXCLUDED.party_totals,
		     total_contributed_cents = EXCLUDED.total_contributed_cents,
		     linkage_total_cents     = EXCLUDED.linkage_total_cents,
		     pac_total_cents         = EXCLUDED.pac_total_cents,
		     has_linkage_data        = EXCLUDED.has_linkage_data,
		     has_pac_data            = EXCLUDED.has_pac_data,
		     data_sources            = EXCLUDED.data_sources,
		     pac_committees          = EXCLUDED.pac_committees,
		     updated_at              = now()`,
		key, rec.NormalizedName, rec.DisplayName, rec.StockTicker, rec.DataYear,
		totalsJSON, rec.TotalContributedCents, rec.LinkageTotalCents, rec.PACTransferTotalCents,
		rec.HasLinkageData, rec.HasPACData, sourcesJSON, committeesJSON,
	); err != nil {
		return eris.Wrapf(err, "fecstore: write consolidated %s", key)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "fecstore: commit consolidated %s", key)
	}
	return nil
}

// Record writes a consolidation failure to the dead-letter table.
func (s *Store) Record(ctx context.Context, e *resilience.DLQEntry) error {
	var nextRetry *time.Time
	if !e.NextRetryAt.IsZero() {
		nextRetry = &e.NextRetryAt
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fec_data.dead_letters
		     (doc_key, stage, error_type, error, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.DocKey, e.Stage, e.ErrorType, e.Error,
		e.RetryCount, e.MaxRetries, nextRetry, e.CreatedAt, e.LastFailedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "fecstore: record dead letter %s", e.DocKey)
	}
	return nil
}

// ListDeadLetters returns dead-letter entries matching the filter, most
// recently failed first.
func (s *Store) ListDeadLetters(ctx context.Context, f resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	q := `SELECT id, doc_key, stage, error_type, error, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	        FROM fec_data.dead_letters`

	var args []any
	var conds []string
	if f.ErrorType != "" {
		args = append(args, f.ErrorType)
		conds = append(conds, fmt.Sprintf("error_type = $%d", len(args)))
	}
	if f.Stage != "" {
		args = append(args, f.Stage)
		conds = append(conds, fmt.Sprintf("stage = $%d", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY last_failed_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "fecstore: list dead letters")
	}
	defer rows.Close()

	var out []resilience.DLQEntry
	for rows.Next() {
		var (
			e    resilience.DLQEntry
			id   int64
			next *time.Time
		)
		if err := rows.Scan(&id, &e.DocKey, &e.Stage, &e.ErrorType, &e.Error,
			&e.RetryCount, &e.MaxRetries, &next, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "fecstore: scan dead letter")
		}
		e.ID = strconv.FormatInt(id, 10)
		if next != nil {
			e.NextRetryAt = *next
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "fecstore: iterate dead letters")
	}
	return out, nil
}
