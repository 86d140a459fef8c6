// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// SyncOptions narrows one sync run.
type SyncOptions struct {
	GroupID        string
	SeasonID       string
	OrganizationID string
	CreateMissing  bool
}

// ItemError describes one failed entity within a run.
type ItemError struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// BatchOutcome aggregates per-entity results of one reconciliation batch.
type BatchOutcome struct {
	Processed int
	Succeeded int
	Failed    int
	Errors    []ItemError
}

func (b *BatchOutcome) fail(externalID, name string, err error) {
	b.Processed++
	b.Failed++
	b.Errors = append(b.Errors, ItemError{ExternalID: externalID, Name: name, Message: err.Error()})
}

func (b *BatchOutcome) succeed() {
	b.Processed++
	b.Succeeded++
}

// Reconciler maps remote federation entities onto local rows through the
// persistent external-id mapping. Every per-entity failure is isolated:
// recorded and counted without aborting the remaining batch. Only
// run-fatal conditions (rejected credentials, exhausted quota) abort.
type Reconciler struct {
	clubs    driven.ClubStore
	teams    driven.TeamStore
	players  driven.PlayerStore
	mappings driven.MappingStore
	store    driven.ReconcileStore
	dryRun   bool
}

// NewReconciler creates a Reconciler writing through the given store.
func NewReconciler(clubs driven.ClubStore, teams driven.TeamStore, players driven.PlayerStore, mappings driven.MappingStore, store driven.ReconcileStore) *Reconciler {
	return &Reconciler{
		clubs:    clubs,
		teams:    teams,
		players:  players,
		mappings: mappings,
		store:    store,
	}
}

// WithStore returns a copy of the reconciler writing through a different
// store. dryRun additionally suppresses mapping error marks, leaving the
// database completely untouched (used by previews).
func (r *Reconciler) WithStore(store driven.ReconcileStore, dryRun bool) *Reconciler {
	clone := *r
	clone.store = store
	clone.dryRun = dryRun
	return &clone
}

// runFatal reports whether an error must abort the whole run rather than
// fail one item.
func runFatal(err error) bool {
	return errors.Is(err, driven.ErrRateLimited) || errors.Is(err, driven.ErrAuthentication)
}

// ReconcileTeams syncs the groups matching opts onto local teams.
func (r *Reconciler) ReconcileTeams(ctx context.Context, client driven.FederationClient, orgLabel string, opts SyncOptions) (BatchOutcome, error) {
	var outcome BatchOutcome

	groups, err := r.matchedGroups(ctx, client, opts)
	if err != nil {
		return outcome, err
	}

	clubID, err := r.reconcileClub(ctx, client, orgLabel, opts)
	if err != nil {
		if runFatal(err) {
			return outcome, err
		}
		slog.Warn("club reconciliation failed, teams keep their current club", "error", err)
	}

	for _, group := range groups {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}

		extID := teamExternalID(group)
		if err := r.reconcileTeam(ctx, group, clubID, opts.CreateMissing); err != nil {
			if runFatal(err) {
				return outcome, err
			}
			outcome.fail(extID, group.Name, err)
			r.markMappingError(ctx, model.EntityKindTeam, extID, err)
			continue
		}
		outcome.succeed()
	}

	return outcome, nil
}

// ReconcilePlayers syncs the rosters of the groups matching opts onto local
// players.
func (r *Reconciler) ReconcilePlayers(ctx context.Context, client driven.FederationClient, orgLabel string, opts SyncOptions) (BatchOutcome, error) {
	var outcome BatchOutcome

	groups, err := r.matchedGroups(ctx, client, opts)
	if err != nil {
		return outcome, err
	}

	seen := make(map[string]bool)

	for _, group := range groups {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}

		contacts, err := client.ListGroupContacts(ctx, group.ID)
		if err != nil {
			if runFatal(err) {
				return outcome, err
			}
			outcome.fail(group.ID, group.Name, fmt.Errorf("list group contacts: %w", err))
			continue
		}

		contacts, err = r.enrichContacts(ctx, client, contacts)
		if err != nil {
			return outcome, err
		}

		teamID := r.teamIDForGroup(ctx, group)

		for _, contact := range contacts {
			if contact.ID != "" && seen[contact.ID] {
				continue
			}
			seen[contact.ID] = true

			if err := r.reconcilePlayer(ctx, contact, teamID); err != nil {
				if runFatal(err) {
					return outcome, err
				}
				outcome.fail(contact.ID, contact.DisplayName, err)
				r.markMappingError(ctx, model.EntityKindPlayer, contact.ID, err)
				continue
			}
			outcome.succeed()
		}
	}

	return outcome, nil
}

// matchedGroups lists groups for the options and applies the season filter.
// When a season-filtered listing for an explicit group id comes back empty,
// the group is looked up directly by id as a secondary path; season
// filtering still applies to whatever that returns.
func (r *Reconciler) matchedGroups(ctx context.Context, client driven.FederationClient, opts SyncOptions) ([]model.RemoteGroup, error) {
	filter := driven.GroupFilter{
		OrganizationID: opts.OrganizationID,
		SeasonID:       opts.SeasonID,
	}
	if opts.GroupID != "" {
		filter.GroupIDs = []string{opts.GroupID}
	}

	groups, err := client.ListGroups(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	if len(groups) == 0 && opts.GroupID != "" && opts.SeasonID != "" {
		groups, err = client.ListGroups(ctx, driven.GroupFilter{
			OrganizationID: opts.OrganizationID,
			GroupIDs:       []string{opts.GroupID},
		})
		if err != nil {
			return nil, fmt.Errorf("direct group lookup: %w", err)
		}
	}

	seasonLabel := ""
	if opts.SeasonID != "" {
		seasons, err := client.ListSeasons(ctx)
		if err != nil {
			if runFatal(err) {
				return nil, err
			}
			slog.Warn("season catalog unavailable, filtering by season id only", "error", err)
		}
		for _, season := range seasons {
			if season.ID == opts.SeasonID {
				seasonLabel = season.Name
				break
			}
		}
	}

	matched := groups[:0]
	for _, group := range groups {
		if seasonMatches(group, opts.SeasonID, seasonLabel) {
			matched = append(matched, group)
		}
	}
	return matched, nil
}

// teamExternalID picks the external identity for a group row. Group
// identity is season-scoped: relation ids win over base group ids.
func teamExternalID(g model.RemoteGroup) string {
	if g.Kind == model.GroupRowRelation && g.RelationID != "" {
		return g.RelationID
	}
	return g.ID
}

// reconcileClub maps the run's organization onto a local club and returns
// its id, 0 when no organization could be resolved.
func (r *Reconciler) reconcileClub(ctx context.Context, client driven.FederationClient, orgLabel string, opts SyncOptions) (int64, error) {
	orgs, err := client.ListOrganizations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list organizations: %w", err)
	}
	if len(orgs) == 0 {
		return 0, nil
	}

	org := orgs[0]
	for _, candidate := range orgs {
		if opts.OrganizationID != "" && candidate.ID == opts.OrganizationID {
			org = candidate
			break
		}
		if opts.OrganizationID == "" && strings.EqualFold(strings.TrimSpace(candidate.Name), strings.TrimSpace(orgLabel)) {
			org = candidate
			break
		}
	}

	var club model.Club
	mapping, err := r.mappings.GetByExternalID(ctx, model.EntityKindClub, org.ID)
	if err != nil {
		return 0, err
	}
	if mapping != nil {
		existing, err := r.clubs.GetByID(ctx, mapping.LocalID)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			club = *existing
		}
	}
	if club.ID == 0 {
		existing, err := r.clubs.FindByName(ctx, org.Name)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			club = *existing
		}
	}

	if org.Name != "" {
		club.Name = org.Name
	}

	return r.store.ApplyClub(ctx, club, org.ID, org.Name)
}

// reconcileTeam applies one group row onto a local team.
func (r *Reconciler) reconcileTeam(ctx context.Context, group model.RemoteGroup, clubID int64, createMissing bool) error {
	name := strings.TrimSpace(group.Name)
	if name == "" {
		return fmt.Errorf("group %s has no name", group.ID)
	}

	extID := teamExternalID(group)

	var team model.Team
	mapping, err := r.mappings.GetByExternalID(ctx, model.EntityKindTeam, extID)
	if err != nil {
		return err
	}
	if mapping != nil {
		existing, err := r.teams.GetByID(ctx, mapping.LocalID)
		if err != nil {
			return err
		}
		if existing != nil {
			team = *existing
		}
	}

	if team.ID == 0 {
		existing, err := r.teams.FindByNameAndSeason(ctx, name, group.SeasonLabel)
		if err != nil {
			return err
		}
		if existing != nil {
			team = *existing
		}
	}

	if team.ID == 0 && mapping == nil && !createMissing {
		return fmt.Errorf("no matching local team for group %q and creation is disabled", name)
	}

	team.Name = name
	if group.SeasonLabel != "" {
		team.SeasonLabel = group.SeasonLabel
	}
	if clubID != 0 {
		team.ClubID = clubID
	}

	if _, err := r.store.ApplyTeam(ctx, team, extID, name); err != nil {
		return err
	}
	return nil
}

// enrichContacts replaces bare membership rows with full contact records
// fetched by id. Enrichment failures degrade gracefully: the bare rows stay
// and fail identity derivation individually.
func (r *Reconciler) enrichContacts(ctx context.Context, client driven.FederationClient, contacts []model.RemoteContact) ([]model.RemoteContact, error) {
	var thin []string
	for _, contact := range contacts {
		if needsDetail(contact) {
			thin = append(thin, contact.ID)
		}
	}
	if len(thin) == 0 {
		return contacts, nil
	}

	details, err := client.GetContactsByIDs(ctx, thin)
	if err != nil {
		if runFatal(err) {
			return nil, err
		}
		slog.Warn("contact enrichment failed, keeping membership rows", "count", len(thin), "error", err)
		return contacts, nil
	}

	byID := make(map[string]model.RemoteContact, len(details))
	for _, detail := range details {
		byID[detail.ID] = detail
	}

	for i, contact := range contacts {
		if detail, ok := byID[contact.ID]; ok && needsDetail(contact) {
			contacts[i] = detail
		}
	}
	return contacts, nil
}

// teamIDForGroup resolves the local team a group maps to, 0 when unmapped.
func (r *Reconciler) teamIDForGroup(ctx context.Context, group model.RemoteGroup) int64 {
	mapping, err := r.mappings.GetByExternalID(ctx, model.EntityKindTeam, teamExternalID(group))
	if err != nil || mapping == nil {
		return 0
	}
	return mapping.LocalID
}

// reconcilePlayer applies one remote contact onto a local player.
func (r *Reconciler) reconcilePlayer(ctx context.Context, contact model.RemoteContact, teamID int64) error {
	first, last, ok := deriveName(contact)
	if !ok {
		return fmt.Errorf("contact %s has no derivable first and last name", contact.ID)
	}
	if contact.ID == "" {
		return fmt.Errorf("contact %q %q has no external id", first, last)
	}

	gender := normalizeGender(contact.Gender)
	birthDate := parseBirthDate(contact.BirthDate)

	var player model.Player
	mapping, err := r.mappings.GetByExternalID(ctx, model.EntityKindPlayer, contact.ID)
	if err != nil {
		return err
	}
	if mapping != nil {
		existing, err := r.players.GetByID(ctx, mapping.LocalID)
		if err != nil {
			return err
		}
		if existing != nil {
			player = *existing
		}
	}

	if player.ID == 0 && contact.Email != "" {
		existing, err := r.players.FindByEmail(ctx, contact.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			player = *existing
		}
	}

	if player.ID == 0 && birthDate != nil {
		existing, err := r.players.FindByNameAndBirthDate(ctx, first, last, *birthDate)
		if err != nil {
			return err
		}
		if existing != nil {
			player = *existing
		}
	}

	player.FirstName = first
	player.LastName = last
	if contact.Email != "" {
		player.Email = contact.Email
	}
	if gender != model.GenderUnknown || player.Gender == "" {
		player.Gender = gender
	}
	if birthDate != nil {
		player.BirthDate = birthDate
	}
	if teamID != 0 {
		player.TeamID = teamID
	}

	displayName := first + " " + last
	if _, err := r.store.ApplyPlayer(ctx, player, contact.ID, displayName); err != nil {
		return err
	}
	return nil
}

// markMappingError records an item failure on an existing mapping. Previews
// never write.
func (r *Reconciler) markMappingError(ctx context.Context, kind model.EntityKind, externalID string, itemErr error) {
	if r.dryRun || externalID == "" {
		return
	}
	if err := r.mappings.MarkError(ctx, kind, externalID, itemErr.Error()); err != nil {
		slog.Error("mark mapping error failed", "kind", string(kind), "external_id", externalID, "error", err)
	}
}
