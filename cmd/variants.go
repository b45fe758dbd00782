package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec/index"
	"github.com/stanse/fec-pipeline/internal/fec/model"
	"github.com/stanse/fec-pipeline/internal/fec/resolve"
	"github.com/stanse/fec-pipeline/internal/fec/verify"
	"github.com/stanse/fec-pipeline/internal/fecstore"
	"github.com/stanse/fec-pipeline/pkg/anthropic"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "Build the company variant-group index",
	Long: `Scans PAC committees for the configured data years, resolves each
committee's sponsoring organization, and clusters name variants into
company groups. Existing assignments are never moved; new names attach
additively.

With --verify (or verify.enabled), fuzzy-matched variants are checked
against the AI oracle and rejected variants are split into their own
groups. Verification only vetoes; it never creates matches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "variants"))

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := fecstore.NewStore(pool)

		seeds, err := loadSeeds()
		if err != nil {
			return err
		}

		builder := index.NewBuilder(store, store, resolve.NewGreedyGrouper(seeds))
		stats, err := builder.Build(ctx, cfg.FEC.DataYears)
		if err != nil {
			return eris.Wrap(err, "variants: build index")
		}

		fmt.Printf("Index built: %d committees scanned, %d new groups, %d updated, %d skipped\n",
			stats.CommitteesScanned, stats.NewGroups, stats.UpdatedGroups, stats.SkippedExtraction)

		doVerify, _ := cmd.Flags().GetBool("verify")
		if !doVerify && !cfg.Verify.Enabled {
			return nil
		}
		if cfg.Verify.Key == "" {
			return eris.New("variants: verify requested but verify.key is not set")
		}

		verifier := verify.NewVerifier(anthropic.NewClient(cfg.Verify.Key), verify.Config{
			Model:          cfg.Verify.Model,
			MaxTokens:      int64(cfg.Verify.MaxTokens),
			RequestsPerSec: cfg.Verify.RequestsPerSec,
			Timeout:        time.Duration(cfg.Verify.TimeoutSecs) * time.Second,
			PollInterval:   15 * time.Second,
		})

		vetoed, err := vetoFuzzyMatches(ctx, store, verifier)
		if err != nil {
			return eris.Wrap(err, "variants: verify")
		}
		log.Info("verification pass complete", zap.Int("vetoed_variants", vetoed))
		fmt.Printf("Verification complete: %d variants split out\n", vetoed)
		return nil
	},
}

func init() {
	variantsCmd.Flags().Bool("verify", false, "verify fuzzy matches through the AI oracle")
	rootCmd.AddCommand(variantsCmd)
}

// loadSeeds reads the configured seed file, falling back to the embedded
// list when no file exists at the configured path.
func loadSeeds() ([]resolve.SeedCompany, error) {
	if cfg.FEC.SeedsPath != "" {
		if _, err := os.Stat(cfg.FEC.SeedsPath); err == nil {
			return resolve.LoadSeeds(cfg.FEC.SeedsPath)
		}
	}
	return resolve.DefaultSeeds()
}

// vetoFuzzyMatches batch-verifies every fuzzy-attached variant of every
// unverified group. A rejected variant is split into its own singleton
// group; the next index build re-attaches its committees there. Seed
// (verified) groups are never questioned.
func vetoFuzzyMatches(ctx context.Context, store *fecstore.Store, verifier *verify.Verifier) (int, error) {
	groups, err := store.AllGroups(ctx)
	if err != nil {
		return 0, err
	}

	var pairs []verify.MatchPair
	type pairRef struct {
		group   int
		variant string
	}
	var refs []pairRef

	for i, g := range groups {
		if g.IsVerified {
			continue
		}
		for _, v := range g.Variants {
			if resolve.NormalizeName(v) == g.CanonicalName {
				continue
			}
			pairs = append(pairs, verify.MatchPair{Canonical: displayOrCanonical(g), Candidate: v})
			refs = append(refs, pairRef{group: i, variant: v})
		}
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	decisions, err := verifier.VerifyBatch(ctx, pairs)
	if err != nil {
		return 0, err
	}

	dirty := make(map[int]bool)
	var split []model.VariantGroup
	for i, d := range decisions {
		if d.Match {
			continue
		}
		ref := refs[i]
		g := &groups[ref.group]
		g.Variants = removeString(g.Variants, ref.variant)
		dirty[ref.group] = true
		split = append(split, model.VariantGroup{
			CanonicalName: resolve.NormalizeName(ref.variant),
			DisplayName:   ref.variant,
			Variants:      []string{ref.variant},
		})
		zap.L().Info("fuzzy match vetoed",
			zap.String("group", g.CanonicalName),
			zap.String("variant", ref.variant),
			zap.String("reason", d.Reason),
		)
	}
	if len(split) == 0 {
		return 0, nil
	}

	upserts := make([]model.VariantGroup, 0, len(dirty)+len(split))
	for i := range groups {
		if dirty[i] {
			upserts = append(upserts, groups[i])
		}
	}
	upserts = append(upserts, split...)

	if err := store.UpsertGroups(ctx, upserts); err != nil {
		return 0, err
	}
	return len(split), nil
}

func displayOrCanonical(g model.VariantGroup) string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.CanonicalName
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
