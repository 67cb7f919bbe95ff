// Package signup provisions the organization, profile and role for a newly
// registered user.
package signup

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/metrics"
	"voice-dashboard/internal/notify"
	"voice-dashboard/internal/orgs"
	"voice-dashboard/internal/rbac"
)

// Organizations is the orgs.Service surface provisioning needs.
type Organizations interface {
	CreateOrganization(ctx context.Context, name string) (orgs.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	CreateProfile(ctx context.Context, p orgs.Profile) (orgs.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
	AssignRole(ctx context.Context, userID, organizationID, role string) (orgs.UserRole, error)
	RemoveRole(ctx context.Context, id string) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, organizationID, userID string, action audit.Action, entityType, entityID string, details any) error
}

type NewUser struct {
	UserID           string
	Email            string
	FullName         string
	OrganizationName string
}

type Result struct {
	Organization orgs.Organization `json:"organization"`
	Profile      orgs.Profile      `json:"profile"`
	Role         orgs.UserRole     `json:"role"`
}

type Provisioner struct {
	orgs     Organizations
	activity ActivityRecorder
	notifier notify.Notifier
	log      *slog.Logger
}

func NewProvisioner(o Organizations, activity ActivityRecorder, n notify.Notifier, log *slog.Logger) *Provisioner {
	return &Provisioner{orgs: o, activity: activity, notifier: n, log: log.With("component", "signup")}
}

// Provision creates organization, profile and default role for u. A failure in
// any of those undoes the earlier ones. The activity log entry and welcome
// notification are best-effort.
func (p *Provisioner) Provision(ctx context.Context, u NewUser) (Result, error) {
	if strings.TrimSpace(u.UserID) == "" {
		return Result{}, apperrors.Validation("user_id", "is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return Result{}, apperrors.Validation("email", "is required")
	}
	orgName := strings.TrimSpace(u.OrganizationName)
	if orgName == "" {
		orgName = defaultOrganizationName(u)
	}

	log := p.log.With("user_id", u.UserID)
	var res Result
	steps := []step{
		{
			name: "organization",
			do: func(ctx context.Context) (err error) {
				res.Organization, err = p.orgs.CreateOrganization(ctx, orgName)
				return err
			},
			undo: func(ctx context.Context) error { return p.orgs.DeleteOrganization(ctx, res.Organization.ID) },
		},
		{
			name: "profile",
			do: func(ctx context.Context) (err error) {
				res.Profile, err = p.orgs.CreateProfile(ctx, orgs.Profile{
					ID:             u.UserID,
					OrganizationID: res.Organization.ID,
					Email:          u.Email,
					FullName:       u.FullName,
				})
				return err
			},
			undo: func(ctx context.Context) error { return p.orgs.DeleteProfile(ctx, u.UserID) },
		},
		{
			name: "role",
			do: func(ctx context.Context) (err error) {
				res.Role, err = p.orgs.AssignRole(ctx, u.UserID, res.Organization.ID, rbac.DefaultSignupRole)
				return err
			},
			undo: func(ctx context.Context) error { return p.orgs.RemoveRole(ctx, res.Role.ID) },
		},
		{
			name:     "activity",
			optional: true,
			do: func(ctx context.Context) error {
				if p.activity == nil {
					return nil
				}
				return p.activity.Record(ctx, res.Organization.ID, u.UserID, audit.ActionSignup, "organization", res.Organization.ID,
					map[string]string{"email": u.Email})
			},
		},
		{
			name:     "welcome",
			optional: true,
			do: func(ctx context.Context) error {
				if p.notifier != nil {
					p.notifier.Notify(ctx, notify.Notification{
						OrganizationID: res.Organization.ID,
						UserID:         u.UserID,
						Level:          notify.LevelSuccess,
						Title:          "Welcome",
						Message:        "Your workspace " + res.Organization.Name + " is ready.",
					})
				}
				return nil
			},
		},
	}

	compensated, err := run(ctx, log, steps)
	switch {
	case err == nil:
		metrics.SignupOutcomes.WithLabelValues("ok").Inc()
		log.Info("user provisioned", "organization_id", res.Organization.ID)
		return res, nil
	case errors.Is(err, ErrCompensation):
		metrics.SignupOutcomes.WithLabelValues("compensation_failed").Inc()
	case compensated:
		metrics.SignupOutcomes.WithLabelValues("compensated").Inc()
	}
	return Result{}, err
}

func defaultOrganizationName(u NewUser) string {
	if n := strings.TrimSpace(u.FullName); n != "" {
		return n + "'s Organization"
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local + "'s Organization"
}
