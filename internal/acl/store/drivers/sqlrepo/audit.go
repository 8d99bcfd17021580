package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

type auditRepo struct{ *Repos }

func (r *auditRepo) Append(ctx context.Context, e domain.AuditEvent) error {
	detail := "{}"
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("encode audit detail: %w", err)
		}
		detail = string(b)
	}
	_, err := r.exec(ctx,
		`INSERT INTO audit_events (id, action, actor_id, project_id, subject_user_id, invite_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Action), nullString(e.ActorID), nullString(e.ProjectID), nullString(e.SubjectUserID),
		nullString(e.InviteID), detail, e.CreatedAt.UTC(),
	)
	return err
}

func (r *auditRepo) ListByProject(ctx context.Context, projectID string) ([]domain.AuditEvent, error) {
	var out []domain.AuditEvent
	err := r.queryAll(ctx,
		`SELECT id, action, actor_id, project_id, subject_user_id, invite_id, detail, created_at
		 FROM audit_events WHERE project_id = ? ORDER BY id`,
		func(rows *sql.Rows) error {
			var (
				e                                 domain.AuditEvent
				action, detail                    string
				actor, project, subject, inviteID sql.NullString
			)
			if err := rows.Scan(&e.ID, &action, &actor, &project, &subject, &inviteID, &detail, &e.CreatedAt); err != nil {
				return err
			}
			e.Action = domain.AuditAction(action)
			e.ActorID = stringPtr(actor)
			e.ProjectID = stringPtr(project)
			e.SubjectUserID = stringPtr(subject)
			e.InviteID = stringPtr(inviteID)
			if detail != "" && detail != "{}" {
				if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
					return fmt.Errorf("decode audit detail: %w", err)
				}
			}
			out = append(out, e)
			return nil
		}, projectID)
	return out, err
}
