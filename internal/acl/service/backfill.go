package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// BackfillTeammateRole is what every legacy teammate other than the owner
// receives. It is a product decision and deliberately coarse.
const BackfillTeammateRole = domain.RoleView

const DefaultBackfillWorkers = 4

// Backfill outcomes, also used as metric labels.
const (
	BackfillMigrated  = "migrated"
	BackfillUnchanged = "unchanged"
	BackfillFailed    = "failed"
	BackfillSkipped   = "skipped"
)

var errNoOwnerCandidate = errors.New("no owner candidate")

// Backfill seeds project_shares from legacy team membership. It only fills
// in missing rows, so re-running it converges on the same state and never
// overwrites a role somebody changed since the last run.
type Backfill struct {
	Deps

	Shares  *ShareService
	Workers int
}

// ProjectResult is one line of the backfill summary.
type ProjectResult struct {
	ProjectID string `json:"project_id"`
	Outcome   string `json:"outcome"`
	Owner     string `json:"owner,omitempty"`
	Granted   int    `json:"granted"`
	Error     string `json:"error,omitempty"`
}

// Report summarises a run. Invalid lists the projects still without an
// owner after the validation pass.
type Report struct {
	Projects    []ProjectResult `json:"projects"`
	Invalid     []string        `json:"invalid_projects,omitempty"`
	Interrupted bool            `json:"interrupted,omitempty"`
}

// Counts tallies results by outcome.
func (r Report) Counts() map[string]int {
	out := make(map[string]int)
	for _, p := range r.Projects {
		out[p.Outcome]++
	}
	return out
}

// Run backfills every non-deleted project. Projects run in parallel up to
// Workers, each in its own transaction. Cancelling ctx stops the run
// between projects; projects not yet started are reported as skipped.
//
// A run that completes is followed by a validation pass; projects without
// an owner fail the run with ErrBackfillValidation.
func (b *Backfill) Run(ctx context.Context) (Report, error) {
	log := slogx.FromContext(ctx)

	ids, err := b.Store.Projects().ListActiveProjectIDs(ctx)
	if err != nil {
		return Report{}, storeErr("list projects", err)
	}

	workers := b.Workers
	if workers <= 0 {
		workers = DefaultBackfillWorkers
	}
	log.Info("backfill starting", slog.Int("projects", len(ids)), slog.Int("workers", workers))

	results := make([]ProjectResult, len(ids))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range ids {
		results[i] = ProjectResult{ProjectID: id, Outcome: BackfillSkipped}
		if ctx.Err() != nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = b.project(ctx, id)
			b.Metrics.backfillProject(results[i].Outcome)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Projects: results}
	if err := ctx.Err(); err != nil {
		report.Interrupted = true
		log.Warn("backfill interrupted", slog.Any("counts", report.Counts()))
		return report, err
	}

	invalid, err := b.Validate(ctx)
	if err != nil {
		return report, err
	}
	report.Invalid = invalid

	log.Info("backfill finished",
		slog.Any("counts", report.Counts()),
		slog.Int("invalid", len(invalid)),
	)
	if len(invalid) > 0 {
		return report, fmt.Errorf("%w: %s", ErrBackfillValidation, strings.Join(invalid, ", "))
	}
	return report, nil
}

// Validate returns the non-deleted projects that hold no owner share.
func (b *Backfill) Validate(ctx context.Context) ([]string, error) {
	ids, err := b.Store.Projects().ListActiveProjectIDs(ctx)
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	var invalid []string
	for _, id := range ids {
		n, err := b.Store.Shares().CountOwners(ctx, id)
		if err != nil {
			return nil, storeErr("count owners", err)
		}
		if n == 0 {
			invalid = append(invalid, id)
		}
	}
	return invalid, nil
}

func (b *Backfill) project(ctx context.Context, projectID string) ProjectResult {
	log := slogx.FromContext(ctx)
	res := ProjectResult{ProjectID: projectID}

	err := b.inTx(ctx, "backfill project", func(tx store.Tx) error {
		res.Owner, res.Granted = "", 0

		p, err := tx.Projects().GetProjectByID(ctx, projectID)
		if err != nil {
			return storeErr("load project", err)
		}
		if p.IsDeleted() {
			return nil
		}

		var members []domain.User
		if p.LegacyTeamID != nil {
			if members, err = tx.Legacy().ListTeamMembers(ctx, *p.LegacyTeamID); err != nil {
				return storeErr("list team members", err)
			}
		}

		owner, err := b.ownerFor(ctx, tx, p, members)
		if err != nil {
			return err
		}
		res.Owner = owner

		// An owner already present means the project was migrated or has
		// been edited since; the candidate is not granted again, so an
		// owner a human revoked stays revoked on a rerun.
		existingOwners, err := tx.Shares().CountOwners(ctx, p.ID)
		if err != nil {
			return storeErr("count owners", err)
		}

		detail := map[string]string{"source": "backfill"}
		if owner != "" && existingOwners == 0 {
			created, err := b.Shares.EnsureShareTx(ctx, tx, p.ID, owner, domain.RoleOwner, "", detail)
			if err != nil {
				return err
			}
			if created {
				res.Granted++
			}
		}
		for _, m := range members {
			if m.ID == owner {
				continue
			}
			created, err := b.Shares.EnsureShareTx(ctx, tx, p.ID, m.ID, BackfillTeammateRole, "", detail)
			if err != nil {
				return err
			}
			if created {
				res.Granted++
			}
		}

		n, err := tx.Shares().CountOwners(ctx, p.ID)
		if err != nil {
			return storeErr("count owners", err)
		}
		if n == 0 {
			return errNoOwnerCandidate
		}
		return nil
	})

	switch {
	case err != nil:
		res.Outcome = BackfillFailed
		res.Error = err.Error()
		res.Granted = 0
		log.Warn("backfill project failed", slog.String("project_id", projectID), slog.Any("error", err))
	case res.Granted > 0:
		res.Outcome = BackfillMigrated
		log.Debug("backfill project migrated",
			slog.String("project_id", projectID),
			slog.String("owner", res.Owner),
			slog.Int("granted", res.Granted),
		)
	default:
		res.Outcome = BackfillUnchanged
	}
	return res
}

// ownerFor picks the creator when the account still exists, else the
// earliest-created active teammate. members is ordered by created_at, id,
// so the first active one is the deterministic choice.
func (b *Backfill) ownerFor(ctx context.Context, tx store.Tx, p domain.Project, members []domain.User) (string, error) {
	if p.CreatedBy != nil && *p.CreatedBy != "" {
		_, err := tx.Users().GetUserByID(ctx, *p.CreatedBy)
		if err == nil {
			return *p.CreatedBy, nil
		}
		if !isNotFound(err) {
			return "", storeErr("load creator", err)
		}
	}
	for _, m := range members {
		if m.Active {
			return m.ID, nil
		}
	}
	return "", nil
}
