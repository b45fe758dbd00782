package fecstore

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// AllGroups loads every persisted variant group.
func (s *Store) AllGroups(ctx context.Context) ([]model.VariantGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT canonical_name, display_name, stock_ticker, is_verified, variants, committees
		 FROM fec_data.variant_groups
		 ORDER BY canonical_name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "fecstore: query variant groups")
	}
	defer rows.Close()

	var out []model.VariantGroup
	for rows.Next() {
		var g model.VariantGroup
		var variantsJSON, committeesJSON []byte
		if err := rows.Scan(&g.CanonicalName, &g.DisplayName, &g.StockTicker, &g.IsVerified, &variantsJSON, &committeesJSON); err != nil {
			return nil, eris.Wrap(err, "fecstore: scan variant group")
		}
		if err := json.Unmarshal(variantsJSON, &g.Variants); err != nil {
			return nil, eris.Wrapf(err, "fecstore: unmarshal variants for %s", g.CanonicalName)
		}
		if err := json.Unmarshal(committeesJSON, &g.Committees); err != nil {
			return nil, eris.Wrapf(err, "fecstore: unmarshal committees for %s", g.CanonicalName)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpsertGroups writes variant groups keyed by canonical name. The JSON
// columns are replaced with the caller's already-merged state; the index
// builder guarantees the merge was additive.
func (s *Store) UpsertGroups(ctx context.Context, groups []model.VariantGroup) error {
	for _, g := range groups {
		variantsJSON, err := json.Marshal(g.Variants)
		if err != nil {
			return eris.Wrapf(err, "fecstore: marshal variants for %s", g.CanonicalName)
		}
		committeesJSON, err := json.Marshal(g.Committees)
		if err != nil {
			return eris.Wrapf(err, "fecstore: marshal committees for %s", g.CanonicalName)
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO fec_data.variant_groups
			     (canonical_name, display_name, stock_ticker, is_verified, variants, committees, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 ON CONFLICT (canonical_name) DO UPDATE SET
			     display_name = EXCLUDED.display_name,
			     stock_ticker = EXCLUDED.stock_ticker,
			     is_verified  = EXCLUDED.is_verified,
			     variants     = EXCLUDED.variants,
			     committees   = EXCLUDED.committees,
			     updated_at   = now()`,
			g.CanonicalName, g.DisplayName, g.StockTicker, g.IsVerified, variantsJSON, committeesJSON,
		)
		if err != nil {
			return eris.Wrapf(err, "fecstore: upsert group %s", g.CanonicalName)
		}
	}
	return nil
}
