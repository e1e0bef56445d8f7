package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"pgvplaning/backend/internal/model"
	"pgvplaning/backend/internal/repository"
	pkgerrors "pgvplaning/backend/pkg/errors"
	"pgvplaning/backend/pkg/redis"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users   map[string]*model.User
	upserts int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	m.upserts++
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TeamRepository ──

type mockTeamRepo struct {
	teams   map[string]*model.Team
	members *mockTeamMemberRepo
}

func newMockTeamRepo(members *mockTeamMemberRepo) *mockTeamRepo {
	return &mockTeamRepo{teams: make(map[string]*model.Team), members: members}
}

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	if team.TeamID == "" {
		team.TeamID = "team-" + team.Name
	}
	team.CreatedAt = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	cp := *team
	m.teams[team.TeamID] = &cp
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	if t, ok := m.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) ListByUser(_ context.Context, userID string) ([]model.Team, error) {
	var out []model.Team
	for key := range m.members.members {
		if key.userID != userID {
			continue
		}
		if t, ok := m.teams[key.teamID]; ok {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockTeamRepo) Update(_ context.Context, team *model.Team) error {
	stored, ok := m.teams[team.TeamID]
	if !ok || stored.Version != team.Version {
		return pkgerrors.ErrOptimisticLock
	}
	team.Version++
	cp := *team
	m.teams[team.TeamID] = &cp
	return nil
}

func (m *mockTeamRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.teams, id)
	return nil
}

// ── Mock TeamMemberRepository ──

type memberKey struct{ teamID, userID string }

type mockTeamMemberRepo struct {
	members map[memberKey]*model.TeamMember
	users   *mockUserRepo
}

func newMockTeamMemberRepo(users *mockUserRepo) *mockTeamMemberRepo {
	return &mockTeamMemberRepo{members: make(map[memberKey]*model.TeamMember), users: users}
}

func (m *mockTeamMemberRepo) Add(_ context.Context, member *model.TeamMember) error {
	key := memberKey{member.TeamID, member.UserID}
	if _, ok := m.members[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *member
	m.members[key] = &cp
	return nil
}

func (m *mockTeamMemberRepo) Get(_ context.Context, teamID, userID string) (*model.TeamMember, error) {
	if tm, ok := m.members[memberKey{teamID, userID}]; ok {
		cp := *tm
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamMemberRepo) ListByTeam(_ context.Context, teamID string) ([]model.TeamMember, error) {
	var out []model.TeamMember
	for key, tm := range m.members {
		if key.teamID != teamID {
			continue
		}
		cp := *tm
		if u, ok := m.users.users[tm.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i].UserID, out[j].UserID
		if out[i].User != nil {
			ni = out[i].User.Name
		}
		if out[j].User != nil {
			nj = out[j].User.Name
		}
		return ni < nj
	})
	return out, nil
}

func (m *mockTeamMemberRepo) Count(_ context.Context, teamID string) (int64, error) {
	var n int64
	for key := range m.members {
		if key.teamID == teamID {
			n++
		}
	}
	return n, nil
}

func (m *mockTeamMemberRepo) Remove(_ context.Context, teamID, userID string) error {
	delete(m.members, memberKey{teamID, userID})
	return nil
}

func (m *mockTeamMemberRepo) UpdateRole(_ context.Context, teamID, userID, role string) error {
	tm, ok := m.members[memberKey{teamID, userID}]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	tm.Role = role
	return nil
}

// ── Mock InviteCodeRepository ──

type mockInviteCodeRepo struct {
	codes map[string]*model.InviteCode
	teams *mockTeamRepo
	// forceDuplicate makes the next N Create calls collide
	forceDuplicate int
}

func newMockInviteCodeRepo(teams *mockTeamRepo) *mockInviteCodeRepo {
	return &mockInviteCodeRepo{codes: make(map[string]*model.InviteCode), teams: teams}
}

func (m *mockInviteCodeRepo) Create(_ context.Context, code *model.InviteCode) error {
	if m.forceDuplicate > 0 {
		m.forceDuplicate--
		return gorm.ErrDuplicatedKey
	}
	for _, c := range m.codes {
		if c.Code == code.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *code
	m.codes[code.InviteCodeID] = &cp
	return nil
}

func (m *mockInviteCodeRepo) find(code string) (*model.InviteCode, error) {
	for _, c := range m.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInviteCodeRepo) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	c, err := m.find(code)
	if err != nil {
		return nil, err
	}
	if t, ok := m.teams.teams[c.TeamID]; ok {
		tc := *t
		c.Team = &tc
	}
	return c, nil
}

func (m *mockInviteCodeRepo) GetByCodeForUpdate(_ context.Context, code string) (*model.InviteCode, error) {
	return m.find(code)
}

func (m *mockInviteCodeRepo) MarkUsed(_ context.Context, id, userID string) error {
	c, ok := m.codes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	c.UseCount++
	c.UsedAt = &now
	c.UsedBy = &userID
	c.Version++
	return nil
}

func (m *mockInviteCodeRepo) ListActiveByTeam(_ context.Context, teamID string, now time.Time) ([]model.InviteCode, error) {
	var out []model.InviteCode
	for _, c := range m.codes {
		if c.TeamID == teamID && !c.Expired(now) && !c.Exhausted() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockInviteCodeRepo) Revoke(_ context.Context, id, _ string) error {
	delete(m.codes, id)
	return nil
}

func (m *mockInviteCodeRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range m.codes {
		if c.ExpiresAt.Before(cutoff) {
			delete(m.codes, id)
			n++
		}
	}
	return n, nil
}

// ── Mock CalendarSnapshotRepository ──

type mockCalendarSnapshotRepo struct {
	snaps map[string]*model.CalendarSnapshot
	saves int
	gets  int
}

func newMockCalendarSnapshotRepo() *mockCalendarSnapshotRepo {
	return &mockCalendarSnapshotRepo{snaps: make(map[string]*model.CalendarSnapshot)}
}

func (m *mockCalendarSnapshotRepo) Get(_ context.Context, userID string) (*model.CalendarSnapshot, error) {
	m.gets++
	if s, ok := m.snaps[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCalendarSnapshotRepo) ListByUsers(_ context.Context, ids []string) ([]model.CalendarSnapshot, error) {
	var out []model.CalendarSnapshot
	for _, id := range ids {
		if s, ok := m.snaps[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockCalendarSnapshotRepo) Save(_ context.Context, snap *model.CalendarSnapshot) error {
	stored, exists := m.snaps[snap.UserID]
	switch {
	case snap.Version == 0 && exists:
		return pkgerrors.ErrOptimisticLock
	case snap.Version != 0 && (!exists || stored.Version != snap.Version):
		return pkgerrors.ErrOptimisticLock
	}
	m.saves++
	snap.Version++
	cp := *snap
	m.snaps[snap.UserID] = &cp
	return nil
}

// ── Mock CalendarCache ──

type cachedCalendar struct {
	data    []byte
	version int
}

type mockCalendarCache struct {
	entries     map[string]cachedCalendar
	hits        int
	invalidated int
}

func newMockCalendarCache() *mockCalendarCache {
	return &mockCalendarCache{entries: make(map[string]cachedCalendar)}
}

func (m *mockCalendarCache) GetCalendar(_ context.Context, userID string) ([]byte, int, error) {
	e, ok := m.entries[userID]
	if !ok {
		return nil, 0, redis.ErrCacheMiss
	}
	m.hits++
	return e.data, e.version, nil
}

func (m *mockCalendarCache) SetCalendar(_ context.Context, userID string, data []byte, version int) error {
	m.entries[userID] = cachedCalendar{data: append([]byte(nil), data...), version: version}
	return nil
}

func (m *mockCalendarCache) InvalidateCalendar(_ context.Context, userID string) error {
	m.invalidated++
	delete(m.entries, userID)
	return nil
}

// ── fixture ──

type mockRepos struct {
	users     *mockUserRepo
	teams     *mockTeamRepo
	members   *mockTeamMemberRepo
	invites   *mockInviteCodeRepo
	snapshots *mockCalendarSnapshotRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	members := newMockTeamMemberRepo(users)
	teams := newMockTeamRepo(members)
	m := &mockRepos{
		users:     users,
		teams:     teams,
		members:   members,
		invites:   newMockInviteCodeRepo(teams),
		snapshots: newMockCalendarSnapshotRepo(),
	}
	repo := &repository.Repository{
		User:             m.users,
		Team:             m.teams,
		TeamMember:       m.members,
		InviteCode:       m.invites,
		CalendarSnapshot: m.snapshots,
	}
	return repo, m
}
