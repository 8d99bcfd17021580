package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/cryptox"
	"github.com/aussiebroadwan/projectacl/pkg/idx"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

const (
	DefaultInviteTTL = 72 * time.Hour

	// MinPasswordLength applies to accounts created by a claim.
	MinPasswordLength = 8
)

// PasswordHasher is the opaque credential primitive used when a claim
// creates an account.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// InviteService is the only writer of account_invites. Claims delegate the
// share grant to Shares inside the claim transaction.
type InviteService struct {
	Deps

	Shares    *ShareService
	Passwords PasswordHasher

	// TTL is the expiry horizon for new invites.
	TTL time.Duration
}

type CreateInviteParams struct {
	Email     string
	InvitedBy string

	// ProjectID and Role are set together or not at all.
	ProjectID string
	Role      *domain.Role
}

// IssuedInvite carries the raw token. It is never stored or logged, so this
// is the only chance to deliver it.
type IssuedInvite struct {
	Invite domain.AccountInvite
	Token  string
}

// Claimant identifies who is claiming: an authenticated user, or a request
// to create a new account.
type Claimant struct {
	UserID     string
	NewAccount *NewAccount
}

type NewAccount struct {
	Email    string
	Password string
}

type ClaimResult struct {
	Invite domain.AccountInvite
	User   domain.User

	// Share is nil for invites without a project grant.
	Share *domain.ProjectShare
}

// CreateInvite issues a new invite. The caller must already have checked
// the inviter may share the target project.
func (s *InviteService) CreateInvite(ctx context.Context, p CreateInviteParams) (IssuedInvite, error) {
	log := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(p.Email)
	if !domain.ValidEmail(email) || p.InvitedBy == "" {
		return IssuedInvite{}, ErrInvalidRequest
	}
	if (p.ProjectID == "") != (p.Role == nil) {
		return IssuedInvite{}, ErrInvalidRequest
	}
	if p.Role != nil && !p.Role.Valid() {
		return IssuedInvite{}, ErrInvalidRequest
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}

	var issued IssuedInvite
	err := s.inTx(ctx, "create invite", func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, p.InvitedBy); err != nil {
			return storeErr("load inviter", err)
		}
		if p.ProjectID != "" {
			if _, err := requireActiveProject(ctx, tx, p.ProjectID); err != nil {
				return err
			}
		}

		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}

		now := s.now()
		inv := domain.AccountInvite{
			ID:          idx.NewAt(now).String(),
			TokenHash:   cryptox.FingerprintToken(token),
			TokenPrefix: cryptox.TokenPrefix(token),
			Email:       email,
			InvitedBy:   p.InvitedBy,
			ProjectID:   optional(p.ProjectID),
			Role:        p.Role,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		}
		if err := tx.Invites().CreateInvite(ctx, inv); err != nil {
			return storeErr("insert invite", err)
		}

		detail := map[string]string{"email": email, "token_prefix": inv.TokenPrefix}
		if inv.Role != nil {
			detail["role"] = inv.Role.String()
		}
		if err := appendAudit(ctx, tx, domain.AuditEvent{
			Action:    domain.AuditInviteCreated,
			ActorID:   &inv.InvitedBy,
			ProjectID: inv.ProjectID,
			InviteID:  &inv.ID,
			Detail:    detail,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		issued = IssuedInvite{Invite: inv, Token: token}
		return nil
	})
	s.Metrics.mutation("create_invite", err)
	if err != nil {
		log.Warn("create invite failed",
			slog.String("invited_by", p.InvitedBy),
			slog.String("project_id", p.ProjectID),
			slog.Any("error", err),
		)
		return IssuedInvite{}, err
	}

	log.Info("invite created",
		slog.String("invite_id", issued.Invite.ID),
		slog.String("token_prefix", issued.Invite.TokenPrefix),
		slog.String("invited_by", p.InvitedBy),
		slog.String("project_id", p.ProjectID),
		slog.Time("expires_at", issued.Invite.ExpiresAt),
	)
	return issued, nil
}

// ClaimInvite consumes the invite identified by rawToken. Marking the
// invite claimed, creating the account (for new-account claims) and
// granting the share commit together or not at all. Of any number of
// concurrent claims exactly one succeeds; the rest get
// ErrInviteAlreadyClaimed.
func (s *InviteService) ClaimInvite(ctx context.Context, rawToken string, c Claimant) (ClaimResult, error) {
	log := slogx.FromContext(ctx)

	if rawToken == "" || (c.UserID == "") == (c.NewAccount == nil) {
		return ClaimResult{}, ErrInvalidRequest
	}

	var (
		newEmail     string
		passwordHash string
	)
	if c.NewAccount != nil {
		newEmail = domain.NormalizeEmail(c.NewAccount.Email)
		if !domain.ValidEmail(newEmail) || len(c.NewAccount.Password) < MinPasswordLength || s.Passwords == nil {
			return ClaimResult{}, ErrInvalidRequest
		}
		// Hashing is deliberately slow; keep it out of the transaction.
		var err error
		if passwordHash, err = s.Passwords.Hash(c.NewAccount.Password); err != nil {
			return ClaimResult{}, err
		}
	}

	fingerprint := cryptox.FingerprintToken(rawToken)

	var res ClaimResult
	err := s.inTx(ctx, "claim invite", func(tx store.Tx) error {
		res = ClaimResult{}

		inv, err := tx.Invites().GetInviteByTokenHashForUpdate(ctx, fingerprint)
		if err != nil {
			return storeErr("load invite", err)
		}
		if !cryptox.MatchFingerprint(rawToken, inv.TokenHash) {
			return ErrNotFound
		}

		now := s.now()
		switch inv.State(now) {
		case domain.InviteStateClaimed:
			return ErrInviteAlreadyClaimed
		case domain.InviteStateRevoked:
			return ErrInviteRevoked
		case domain.InviteStateExpired:
			return ErrInviteExpired
		}

		var user domain.User
		if c.NewAccount != nil {
			if newEmail != inv.Email {
				return ErrEmailMismatch
			}
			user, err = s.createAccount(ctx, tx, newEmail, passwordHash, now)
		} else {
			user, err = s.claimingUser(ctx, tx, c.UserID, inv.Email)
		}
		if err != nil {
			return err
		}

		won, err := tx.Invites().MarkInviteClaimed(ctx, inv.ID, user.ID, now)
		if err != nil {
			return storeErr("mark invite claimed", err)
		}
		if !won {
			return ErrInviteAlreadyClaimed
		}
		inv.ClaimedAt = &now
		inv.ClaimedBy = &user.ID

		if inv.HasProjectGrant() {
			share, err := s.Shares.GrantOrUpdateShareTx(ctx, tx, *inv.ProjectID, user.ID, *inv.Role, inv.InvitedBy)
			if err != nil {
				return err
			}
			res.Share = &share
		}

		if err := appendAudit(ctx, tx, domain.AuditEvent{
			Action:        domain.AuditInviteClaimed,
			ActorID:       &user.ID,
			ProjectID:     inv.ProjectID,
			SubjectUserID: &user.ID,
			InviteID:      &inv.ID,
			Detail:        map[string]string{"token_prefix": inv.TokenPrefix},
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		res.Invite = inv
		res.User = user
		return nil
	})
	s.Metrics.claim(err)
	if err != nil {
		log.Warn("invite claim failed",
			slog.String("token_prefix", cryptox.TokenPrefix(rawToken)),
			slog.Any("error", err),
		)
		return ClaimResult{}, err
	}

	log.Info("invite claimed",
		slog.String("invite_id", res.Invite.ID),
		slog.String("user_id", res.User.ID),
		slog.Bool("new_account", c.NewAccount != nil),
		slog.Bool("share_granted", res.Share != nil),
	)
	return res, nil
}

func (s *InviteService) claimingUser(ctx context.Context, tx store.Tx, userID, inviteEmail string) (domain.User, error) {
	user, err := tx.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, storeErr("load claimant", err)
	}
	if !user.Active {
		return domain.User{}, ErrNotAuthorized
	}
	if domain.NormalizeEmail(user.Email) != inviteEmail {
		return domain.User{}, ErrEmailMismatch
	}
	return user, nil
}

func (s *InviteService) createAccount(
	ctx context.Context,
	tx store.Tx,
	email, passwordHash string,
	now time.Time,
) (domain.User, error) {
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: &passwordHash,
		Active:       true,
		CreatedAt:    now,
	}
	if err := tx.Users().CreateUser(ctx, user); err != nil {
		// An account already exists for the address: the holder has to
		// sign in and claim as that user instead.
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrInvalidRequest
		}
		return domain.User{}, storeErr("create account", err)
	}
	return user, nil
}

// GetInvite loads an invite by id for authorization checks.
func (s *InviteService) GetInvite(ctx context.Context, inviteID string) (domain.AccountInvite, error) {
	inv, err := s.Store.Invites().GetInviteByID(ctx, inviteID)
	if err != nil {
		return domain.AccountInvite{}, storeErr("load invite", err)
	}
	return inv, nil
}

// RevokeInvite revokes a pending invite. Claimed, revoked and expired
// invites fail with ErrAlreadyTerminal.
func (s *InviteService) RevokeInvite(ctx context.Context, inviteID, actor string) (domain.AccountInvite, error) {
	log := slogx.FromContext(ctx)

	if inviteID == "" {
		return domain.AccountInvite{}, ErrInvalidRequest
	}

	var inv domain.AccountInvite
	err := s.inTx(ctx, "revoke invite", func(tx store.Tx) error {
		var err error
		inv, err = tx.Invites().GetInviteByIDForUpdate(ctx, inviteID)
		if err != nil {
			return storeErr("load invite", err)
		}

		now := s.now()
		if !inv.IsPending(now) {
			return ErrAlreadyTerminal
		}
		won, err := tx.Invites().MarkInviteRevoked(ctx, inv.ID, now)
		if err != nil {
			return storeErr("mark invite revoked", err)
		}
		if !won {
			return ErrAlreadyTerminal
		}
		inv.RevokedAt = &now

		return appendAudit(ctx, tx, domain.AuditEvent{
			Action:    domain.AuditInviteRevoked,
			ActorID:   optional(actor),
			ProjectID: inv.ProjectID,
			InviteID:  &inv.ID,
			Detail:    map[string]string{"token_prefix": inv.TokenPrefix},
			CreatedAt: now,
		})
	})
	s.Metrics.mutation("revoke_invite", err)
	if err != nil {
		log.Warn("revoke invite failed",
			slog.String("invite_id", inviteID),
			slog.Any("error", err),
		)
		return domain.AccountInvite{}, err
	}

	log.Info("invite revoked",
		slog.String("invite_id", inv.ID),
		slog.String("actor", actor),
	)
	return inv, nil
}

// ListPendingInvitesForEmail returns the claimable invites addressed to
// email, newest last.
func (s *InviteService) ListPendingInvitesForEmail(ctx context.Context, email string) ([]domain.AccountInvite, error) {
	open, err := s.Store.Invites().ListOpenInvitesByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, storeErr("list invites", err)
	}
	return pendingOnly(open, s.now()), nil
}
