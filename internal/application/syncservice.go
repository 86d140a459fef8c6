package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// StoreCredentialInput is the admin input for registering a federation
// account.
type StoreCredentialInput struct {
	OrgLabel string
	Username string
	Password string
	Endpoint string
}

// SyncResult is the outcome of one sync run as exposed to callers.
type SyncResult struct {
	Processed int         `json:"processed"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors"`
}

// PreviewResult is the outcome of a read-only dry run.
type PreviewResult struct {
	Processed   int           `json:"processed"`
	WouldCreate int           `json:"would_create"`
	WouldUpdate int           `json:"would_update"`
	Failed      int           `json:"failed"`
	Items       []PreviewItem `json:"items"`
	Errors      []ItemError   `json:"errors"`
}

// VerifyResult reports what a credential can reach.
type VerifyResult struct {
	Success          bool     `json:"success"`
	OrganizationName string   `json:"organization_name,omitempty"`
	UsableForSync    bool     `json:"usable_for_sync"`
	Capabilities     []string `json:"capabilities"`
}

// UpdateConfigInput changes a credential's sync configuration.
type UpdateConfigInput struct {
	Enabled bool
	Cadence model.Cadence
}

// SyncService is the entry point the rest of the application calls into.
// It wires the vault, the federation client, the reconciler, and the
// orchestrator together behind the operations of the sync engine.
type SyncService struct {
	vault      driven.CredentialVault
	clients    *ClientProvider
	reconciler *Reconciler
	orch       *Orchestrator
	configs    driven.SyncConfigStore
	runs       driven.RunStore
}

// NewSyncService creates the service facade.
func NewSyncService(
	vault driven.CredentialVault,
	clients *ClientProvider,
	reconciler *Reconciler,
	orch *Orchestrator,
	configs driven.SyncConfigStore,
	runs driven.RunStore,
) *SyncService {
	return &SyncService{
		vault:      vault,
		clients:    clients,
		reconciler: reconciler,
		orch:       orch,
		configs:    configs,
		runs:       runs,
	}
}

// StoreCredential validates, encrypts, and persists a federation account,
// ensuring a sync configuration row exists for it.
func (s *SyncService) StoreCredential(ctx context.Context, input StoreCredentialInput) (int64, error) {
	if strings.TrimSpace(input.Username) == "" {
		return 0, fmt.Errorf("username is required: %w", driven.ErrValidation)
	}
	if input.Password == "" {
		return 0, fmt.Errorf("password is required: %w", driven.ErrValidation)
	}
	endpoint := strings.TrimSpace(input.Endpoint)
	if endpoint == "" {
		return 0, fmt.Errorf("endpoint is required: %w", driven.ErrValidation)
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return 0, fmt.Errorf("endpoint %q is not an absolute URL: %w", endpoint, driven.ErrValidation)
	}

	id, err := s.vault.Store(ctx, strings.TrimSpace(input.OrgLabel), strings.TrimSpace(input.Username), input.Password, endpoint)
	if err != nil {
		return 0, err
	}

	if _, err := s.configs.Ensure(ctx, id); err != nil {
		return 0, err
	}

	slog.Info("credential stored", "credential_id", id, "org_label", input.OrgLabel)
	return id, nil
}

// VerifyConnection authenticates the credential and probes which endpoint
// families respond, recording a successful verification on the credential.
func (s *SyncService) VerifyConnection(ctx context.Context, credentialID int64) (VerifyResult, error) {
	cred, err := s.vault.Retrieve(ctx, credentialID)
	if err != nil {
		return VerifyResult{}, err
	}

	client := s.clients.Get(cred)

	orgs, err := client.ListOrganizations(ctx)
	if err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		Success:       true,
		UsableForSync: len(orgs) > 0,
		Capabilities:  []string{"organisations"},
	}

	if len(orgs) > 0 {
		result.OrganizationName = orgs[0].Name
		for _, org := range orgs {
			if strings.EqualFold(strings.TrimSpace(org.Name), strings.TrimSpace(cred.OrgLabel)) {
				result.OrganizationName = org.Name
				break
			}
		}
	}

	if _, err := client.ListSeasons(ctx); err == nil {
		result.Capabilities = append(result.Capabilities, "seasons")
	} else {
		slog.Debug("seasons endpoint not available", "credential_id", credentialID, "error", err)
	}

	groups, err := client.ListGroups(ctx, driven.GroupFilter{})
	if err == nil {
		result.Capabilities = append(result.Capabilities, "groups")
	} else {
		slog.Debug("groups endpoint not available", "credential_id", credentialID, "error", err)
	}

	if err == nil && len(groups) > 0 {
		if _, err := client.ListGroupContacts(ctx, groups[0].ID); err == nil {
			result.Capabilities = append(result.Capabilities, "contacts")
		} else {
			slog.Debug("contacts endpoint not available", "credential_id", credentialID, "error", err)
		}
	}

	if err := s.vault.MarkVerified(ctx, credentialID); err != nil {
		return VerifyResult{}, err
	}

	return result, nil
}

// SyncTeams runs a locked, history-recorded team sync for the credential.
func (s *SyncService) SyncTeams(ctx context.Context, credentialID int64, opts SyncOptions) (SyncResult, error) {
	return s.runSync(ctx, credentialID, model.SyncTypeTeams, opts)
}

// SyncPlayers runs a locked, history-recorded player sync for the credential.
func (s *SyncService) SyncPlayers(ctx context.Context, credentialID int64, opts SyncOptions) (SyncResult, error) {
	return s.runSync(ctx, credentialID, model.SyncTypePlayers, opts)
}

func (s *SyncService) runSync(ctx context.Context, credentialID int64, syncType model.SyncType, opts SyncOptions) (SyncResult, error) {
	cred, err := s.vault.Retrieve(ctx, credentialID)
	if err != nil {
		return SyncResult{}, err
	}

	cfg, err := s.configs.Ensure(ctx, credentialID)
	if err != nil {
		return SyncResult{}, err
	}

	client := s.clients.Get(cred)

	outcome, err := s.orch.StartSync(ctx, cfg.ID, syncType, func(ctx context.Context) (BatchOutcome, error) {
		if syncType == model.SyncTypeTeams {
			return s.reconciler.ReconcileTeams(ctx, client, cred.OrgLabel, opts)
		}
		return s.reconciler.ReconcilePlayers(ctx, client, cred.OrgLabel, opts)
	})

	return SyncResult{
		Processed: outcome.Processed,
		Succeeded: outcome.Succeeded,
		Failed:    outcome.Failed,
		Errors:    outcome.Errors,
	}, err
}

// PreviewTeams dry-runs a team sync: the full fetch, classify, and match
// pipeline with no writes, no lock, and no history row.
func (s *SyncService) PreviewTeams(ctx context.Context, credentialID int64, opts SyncOptions) (PreviewResult, error) {
	return s.preview(ctx, credentialID, model.SyncTypeTeams, opts)
}

// PreviewPlayers dry-runs a player sync.
func (s *SyncService) PreviewPlayers(ctx context.Context, credentialID int64, opts SyncOptions) (PreviewResult, error) {
	return s.preview(ctx, credentialID, model.SyncTypePlayers, opts)
}

func (s *SyncService) preview(ctx context.Context, credentialID int64, syncType model.SyncType, opts SyncOptions) (PreviewResult, error) {
	cred, err := s.vault.Retrieve(ctx, credentialID)
	if err != nil {
		return PreviewResult{}, err
	}

	client := s.clients.Get(cred)
	store := newPreviewStore()
	dry := s.reconciler.WithStore(store, true)

	var outcome BatchOutcome
	if syncType == model.SyncTypeTeams {
		outcome, err = dry.ReconcileTeams(ctx, client, cred.OrgLabel, opts)
	} else {
		outcome, err = dry.ReconcilePlayers(ctx, client, cred.OrgLabel, opts)
	}
	if err != nil {
		return PreviewResult{}, err
	}

	result := PreviewResult{
		Processed: outcome.Processed,
		Failed:    outcome.Failed,
		Items:     store.recorded(),
		Errors:    outcome.Errors,
	}
	for _, item := range result.Items {
		switch item.Action {
		case PreviewCreate:
			result.WouldCreate++
		case PreviewUpdate:
			result.WouldUpdate++
		}
	}
	return result, nil
}

// GetSyncHistory returns recent runs for a credential, newest first.
func (s *SyncService) GetSyncHistory(ctx context.Context, credentialID int64, limit, offset int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative: %w", driven.ErrValidation)
	}
	return s.runs.ListByCredential(ctx, credentialID, limit, offset)
}

// GetSyncConfig returns the credential's sync configuration, creating the
// default row if needed.
func (s *SyncService) GetSyncConfig(ctx context.Context, credentialID int64) (model.SyncConfiguration, error) {
	if _, err := s.vault.Retrieve(ctx, credentialID); err != nil {
		return model.SyncConfiguration{}, err
	}
	return s.configs.Ensure(ctx, credentialID)
}

// UpdateSyncConfig sets the enabled flag and cadence for a credential.
func (s *SyncService) UpdateSyncConfig(ctx context.Context, credentialID int64, input UpdateConfigInput) error {
	if !input.Cadence.Valid() {
		return fmt.Errorf("cadence %q is not one of manual, hourly, daily, weekly: %w", input.Cadence, driven.ErrValidation)
	}
	if _, err := s.configs.Ensure(ctx, credentialID); err != nil {
		return err
	}
	return s.configs.Update(ctx, credentialID, input.Enabled, input.Cadence)
}

// DeactivateCredential disables a credential and drops its cached client.
func (s *SyncService) DeactivateCredential(ctx context.Context, credentialID int64) error {
	if err := s.vault.Deactivate(ctx, credentialID); err != nil {
		return err
	}
	s.clients.Drop(credentialID)
	return nil
}
