package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// memStore is an in-memory ReconcileStore plus the read-side entity and
// mapping stores, mirroring the transactional upsert semantics of the SQLite
// adapter closely enough for reconciler tests.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	clubs    map[int64]model.Club
	teams    map[int64]model.Team
	players  map[int64]model.Player
	mappings map[string]*model.EntityMapping
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1,
		clubs:    map[int64]model.Club{},
		teams:    map[int64]model.Team{},
		players:  map[int64]model.Player{},
		mappings: map[string]*model.EntityMapping{},
	}
}

func mappingKey(kind model.EntityKind, externalID string) string {
	return string(kind) + "|" + externalID
}

func (s *memStore) upsertMapping(kind model.EntityKind, localID int64, externalID, displayName string) {
	s.mappings[mappingKey(kind, externalID)] = &model.EntityMapping{
		ID:                  localID,
		EntityKind:          kind,
		LocalID:             localID,
		ExternalID:          externalID,
		ExternalDisplayName: displayName,
		LastSyncedAt:        time.Now().UTC(),
		SyncStatus:          model.MappingStatusSuccess,
	}
}

func (s *memStore) ApplyClub(ctx context.Context, club model.Club, externalID, displayName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if club.ID == 0 {
		club.ID = s.nextID
		s.nextID++
	}
	s.clubs[club.ID] = club
	s.upsertMapping(model.EntityKindClub, club.ID, externalID, displayName)
	return club.ID, nil
}

func (s *memStore) ApplyTeam(ctx context.Context, team model.Team, externalID, displayName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == 0 {
		team.ID = s.nextID
		s.nextID++
	}
	s.teams[team.ID] = team
	s.upsertMapping(model.EntityKindTeam, team.ID, externalID, displayName)
	return team.ID, nil
}

func (s *memStore) ApplyPlayer(ctx context.Context, player model.Player, externalID, displayName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player.ID == 0 {
		player.ID = s.nextID
		s.nextID++
	}
	s.players[player.ID] = player
	s.upsertMapping(model.EntityKindPlayer, player.ID, externalID, displayName)
	return player.ID, nil
}

// Read-side ports.

func (s *memStore) GetByExternalID(ctx context.Context, kind model.EntityKind, externalID string) (*model.EntityMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[mappingKey(kind, externalID)]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (s *memStore) ListByKind(ctx context.Context, kind model.EntityKind) ([]model.EntityMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EntityMapping
	for _, m := range s.mappings {
		if m.EntityKind == kind {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) MarkError(ctx context.Context, kind model.EntityKind, externalID, syncError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.mappings[mappingKey(kind, externalID)]; ok {
		m.SyncStatus = model.MappingStatusError
		m.SyncError = syncError
	}
	return nil
}

type clubReader struct{ s *memStore }

func (r clubReader) GetByID(ctx context.Context, id int64) (*model.Club, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if club, ok := r.s.clubs[id]; ok {
		return &club, nil
	}
	return nil, nil
}

func (r clubReader) FindByName(ctx context.Context, name string) (*model.Club, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, club := range r.s.clubs {
		if club.Name == name {
			c := club
			return &c, nil
		}
	}
	return nil, nil
}

type teamReader struct{ s *memStore }

func (r teamReader) GetByID(ctx context.Context, id int64) (*model.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if team, ok := r.s.teams[id]; ok {
		return &team, nil
	}
	return nil, nil
}

func (r teamReader) FindByNameAndSeason(ctx context.Context, name, seasonLabel string) (*model.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, team := range r.s.teams {
		if team.Name == name && team.SeasonLabel == seasonLabel {
			t := team
			return &t, nil
		}
	}
	return nil, nil
}

type playerReader struct{ s *memStore }

func (r playerReader) GetByID(ctx context.Context, id int64) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if player, ok := r.s.players[id]; ok {
		return &player, nil
	}
	return nil, nil
}

func (r playerReader) FindByEmail(ctx context.Context, email string) (*model.Player, error) {
	if email == "" {
		return nil, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, player := range r.s.players {
		if player.Email == email {
			p := player
			return &p, nil
		}
	}
	return nil, nil
}

func (r playerReader) FindByNameAndBirthDate(ctx context.Context, firstName, lastName string, birthDate time.Time) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, player := range r.s.players {
		if player.FirstName == firstName && player.LastName == lastName &&
			player.BirthDate != nil && player.BirthDate.Equal(birthDate) {
			p := player
			return &p, nil
		}
	}
	return nil, nil
}

// newTestReconciler wires a reconciler over one shared memStore.
func newTestReconciler(store *memStore) *Reconciler {
	return NewReconciler(clubReader{store}, teamReader{store}, playerReader{store}, store, store)
}

// fakeClient is a canned-response FederationClient. Any err field short-
// circuits the corresponding call.
type fakeClient struct {
	orgs     []model.RemoteOrganization
	seasons  []model.RemoteSeason
	groups   []model.RemoteGroup
	contacts map[string][]model.RemoteContact // keyed by group id
	details  []model.RemoteContact

	orgsErr     error
	groupsErr   error
	contactsErr map[string]error

	groupCalls []driven.GroupFilter
	idLookups  [][]string
}

func (f *fakeClient) ListOrganizations(ctx context.Context) ([]model.RemoteOrganization, error) {
	return f.orgs, f.orgsErr
}

func (f *fakeClient) ListSeasons(ctx context.Context) ([]model.RemoteSeason, error) {
	return f.seasons, nil
}

func (f *fakeClient) ListGroups(ctx context.Context, filter driven.GroupFilter) ([]model.RemoteGroup, error) {
	f.groupCalls = append(f.groupCalls, filter)
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}

	var out []model.RemoteGroup
	for _, g := range f.groups {
		if len(filter.GroupIDs) > 0 && !containsID(filter.GroupIDs, teamExternalID(g)) {
			continue
		}
		if filter.SeasonID != "" && g.SeasonID != "" && g.SeasonID != filter.SeasonID {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeClient) ListGroupContacts(ctx context.Context, groupID string) ([]model.RemoteContact, error) {
	if err, ok := f.contactsErr[groupID]; ok {
		return nil, err
	}
	return f.contacts[groupID], nil
}

func (f *fakeClient) GetContactsByIDs(ctx context.Context, ids []string) ([]model.RemoteContact, error) {
	f.idLookups = append(f.idLookups, ids)
	var out []model.RemoteContact
	for _, detail := range f.details {
		if containsID(ids, detail.ID) {
			out = append(out, detail)
		}
	}
	return out, nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// memConfigStore / memRunStore back orchestrator and scheduler tests.

type memConfigStore struct {
	mu      sync.Mutex
	configs map[int64]*model.SyncConfiguration

	lockCalls, unlockCalls int
	lastSync               map[int64]time.Time
}

func newMemConfigStore() *memConfigStore {
	return &memConfigStore{
		configs:  map[int64]*model.SyncConfiguration{},
		lastSync: map[int64]time.Time{},
	}
}

func (s *memConfigStore) add(cfg model.SyncConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cfg
	s.configs[cfg.ID] = &c
}

func (s *memConfigStore) Ensure(ctx context.Context, credentialID int64) (model.SyncConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range s.configs {
		if cfg.CredentialID == credentialID {
			return *cfg, nil
		}
	}
	cfg := &model.SyncConfiguration{
		ID:           int64(len(s.configs) + 1),
		CredentialID: credentialID,
		Cadence:      model.CadenceManual,
	}
	s.configs[cfg.ID] = cfg
	return *cfg, nil
}

func (s *memConfigStore) GetByCredential(ctx context.Context, credentialID int64) (*model.SyncConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range s.configs {
		if cfg.CredentialID == credentialID {
			clone := *cfg
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memConfigStore) Update(ctx context.Context, credentialID int64, enabled bool, cadence model.Cadence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range s.configs {
		if cfg.CredentialID == credentialID {
			cfg.Enabled = enabled
			cfg.Cadence = cadence
			return nil
		}
	}
	return fmt.Errorf("configuration for credential %d: %w", credentialID, driven.ErrNotFound)
}

func (s *memConfigStore) TryLock(ctx context.Context, configurationID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockCalls++
	cfg, ok := s.configs[configurationID]
	if !ok {
		return false, fmt.Errorf("configuration %d: %w", configurationID, driven.ErrNotFound)
	}
	if cfg.SyncInProgress {
		return false, nil
	}
	cfg.SyncInProgress = true
	now := time.Now().UTC()
	cfg.LockedAt = &now
	return true, nil
}

func (s *memConfigStore) Unlock(ctx context.Context, configurationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlockCalls++
	if cfg, ok := s.configs[configurationID]; ok {
		cfg.SyncInProgress = false
		cfg.LockedAt = nil
	}
	return nil
}

func (s *memConfigStore) SetLastSync(ctx context.Context, configurationID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync[configurationID] = at
	return nil
}

func (s *memConfigStore) ListEligible(ctx context.Context, cadence model.Cadence) ([]model.SyncConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SyncConfiguration
	for _, cfg := range s.configs {
		if cfg.Enabled && !cfg.SyncInProgress && cfg.Cadence == cadence {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (s *memConfigStore) ListStaleLocks(ctx context.Context, before time.Time) ([]model.SyncConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SyncConfiguration
	for _, cfg := range s.configs {
		if cfg.SyncInProgress && cfg.LockedAt != nil && cfg.LockedAt.Before(before) {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (s *memConfigStore) locked(configurationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[configurationID]
	return ok && cfg.SyncInProgress
}

type memRunStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*model.SyncRun

	createErr  error
	pruneCalls int
	staleCalls int
}

func newMemRunStore() *memRunStore {
	return &memRunStore{nextID: 1, runs: map[int64]*model.SyncRun{}}
}

func (s *memRunStore) Create(ctx context.Context, run model.SyncRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return 0, s.createErr
	}
	run.ID = s.nextID
	s.nextID++
	run.Status = model.RunStatusInProgress
	s.runs[run.ID] = &run
	return run.ID, nil
}

func (s *memRunStore) Finalize(ctx context.Context, id int64, status model.RunStatus, processed, succeeded, failed int, errorDetail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok || run.Status != model.RunStatusInProgress {
		return fmt.Errorf("finalize run %d: no in_progress row", id)
	}
	run.Status = status
	run.ItemsProcessed = processed
	run.ItemsSucceeded = succeeded
	run.ItemsFailed = failed
	run.ErrorDetail = errorDetail
	now := time.Now().UTC()
	run.CompletedAt = &now
	return nil
}

func (s *memRunStore) ListByCredential(ctx context.Context, credentialID int64, limit, offset int) ([]model.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SyncRun
	for _, run := range s.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (s *memRunStore) Prune(ctx context.Context, configurationID int64, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneCalls++
	return nil
}

func (s *memRunStore) FailStale(ctx context.Context, configurationID int64, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleCalls++
	for _, run := range s.runs {
		if run.ConfigurationID == configurationID && run.Status == model.RunStatusInProgress && run.StartedAt.Before(before) {
			run.Status = model.RunStatusFailed
		}
	}
	return nil
}

func (s *memRunStore) byID(id int64) model.SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		return *run
	}
	return model.SyncRun{}
}

func (s *memRunStore) all() []model.SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SyncRun
	for _, run := range s.runs {
		out = append(out, *run)
	}
	return out
}

// Compile-time satisfaction checks for the fakes.
var (
	_ driven.ReconcileStore   = (*memStore)(nil)
	_ driven.MappingStore     = (*memStore)(nil)
	_ driven.ClubStore        = clubReader{}
	_ driven.TeamStore        = teamReader{}
	_ driven.PlayerStore      = playerReader{}
	_ driven.FederationClient = (*fakeClient)(nil)
	_ driven.SyncConfigStore  = (*memConfigStore)(nil)
	_ driven.RunStore         = (*memRunStore)(nil)
)
