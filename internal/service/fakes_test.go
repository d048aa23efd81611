package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/repository"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeTx struct {
	calls     int
	rollbacks int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	return nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (f *fakeUserRepo) add(username, fullName string, role domain.UserRole) *domain.User {
	user := &domain.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		FullName: fullName,
		Role:     role,
		IsActive: true,
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	user.ID = uuid.New()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, int, error) {
	all := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		all = append(all, *user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return window(all, limit, offset), len(all), nil
}

type fakeGroupRepo struct {
	groups  map[uuid.UUID]*domain.Group
	members map[uuid.UUID]map[uuid.UUID]bool
	users   *fakeUserRepo
}

func newFakeGroupRepo(users *fakeUserRepo) *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  map[uuid.UUID]*domain.Group{},
		members: map[uuid.UUID]map[uuid.UUID]bool{},
		users:   users,
	}
}

func (f *fakeGroupRepo) add(name string, members ...*domain.User) *domain.Group {
	group := &domain.Group{ID: uuid.New(), Name: name}
	f.groups[group.ID] = group
	f.members[group.ID] = map[uuid.UUID]bool{}
	for _, member := range members {
		f.members[group.ID][member.ID] = true
	}
	return group
}

func (f *fakeGroupRepo) Create(_ context.Context, group *domain.Group) error {
	for _, existing := range f.groups {
		if existing.Name == group.Name {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	group.ID = uuid.New()
	copied := *group
	f.groups[group.ID] = &copied
	f.members[group.ID] = map[uuid.UUID]bool{}
	return nil
}

func (f *fakeGroupRepo) Update(_ context.Context, group *domain.Group) error {
	if _, ok := f.groups[group.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range f.groups {
		if id != group.ID && existing.Name == group.Name {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	copied := *group
	f.groups[group.ID] = &copied
	return nil
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Group, error) {
	group, ok := f.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *group
	copied.MemberCount = len(f.members[id])
	return &copied, nil
}

func (f *fakeGroupRepo) GetByName(_ context.Context, name string) (*domain.Group, error) {
	for id, group := range f.groups {
		if group.Name == name {
			return f.GetByID(context.Background(), id)
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeGroupRepo) List(_ context.Context, limit, offset int) ([]domain.Group, int, error) {
	all := make([]domain.Group, 0, len(f.groups))
	for _, group := range f.groups {
		all = append(all, *group)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return window(all, limit, offset), len(all), nil
}

func (f *fakeGroupRepo) ListMembers(_ context.Context, groupID uuid.UUID) ([]domain.GroupMembership, error) {
	result := []domain.GroupMembership{}
	for userID := range f.members[groupID] {
		result = append(result, domain.GroupMembership{GroupID: groupID, UserID: userID})
	}
	return result, nil
}

func (f *fakeGroupRepo) GetMembership(_ context.Context, groupID, userID uuid.UUID) (*domain.GroupMembership, error) {
	if !f.members[groupID][userID] {
		return nil, pgx.ErrNoRows
	}
	return &domain.GroupMembership{GroupID: groupID, UserID: userID}, nil
}

func (f *fakeGroupRepo) AddMember(_ context.Context, membership *domain.GroupMembership) error {
	if f.members[membership.GroupID][membership.UserID] {
		return &pgconn.PgError{Code: "23505"}
	}
	f.members[membership.GroupID][membership.UserID] = true
	membership.ID = uuid.New()
	return nil
}

func (f *fakeGroupRepo) RemoveMember(_ context.Context, groupID, userID uuid.UUID) error {
	if !f.members[groupID][userID] {
		return pgx.ErrNoRows
	}
	delete(f.members[groupID], userID)
	return nil
}

type fakeSLAConfigRepo struct {
	configs map[domain.TicketPriority]domain.SlaConfig
}

func newFakeSLAConfigRepo(configs ...domain.SlaConfig) *fakeSLAConfigRepo {
	f := &fakeSLAConfigRepo{configs: map[domain.TicketPriority]domain.SlaConfig{}}
	for _, cfg := range configs {
		f.configs[cfg.Priority] = cfg
	}
	return f
}

func (f *fakeSLAConfigRepo) GetByPriority(_ context.Context, priority domain.TicketPriority) (*domain.SlaConfig, error) {
	cfg, ok := f.configs[priority]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &cfg, nil
}

func (f *fakeSLAConfigRepo) List(_ context.Context) ([]domain.SlaConfig, error) {
	result := []domain.SlaConfig{}
	for _, priority := range domain.TicketPriorities {
		if cfg, ok := f.configs[priority]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (f *fakeSLAConfigRepo) Upsert(_ context.Context, cfg *domain.SlaConfig) error {
	f.configs[cfg.Priority] = *cfg
	return nil
}

func (f *fakeSLAConfigRepo) InsertIfMissing(_ context.Context, cfg *domain.SlaConfig) (bool, error) {
	if _, ok := f.configs[cfg.Priority]; ok {
		return false, nil
	}
	f.configs[cfg.Priority] = *cfg
	return true, nil
}

type fakeTicketRepo struct {
	tickets    map[uuid.UUID]*domain.Ticket
	seq        int64
	creates    int
	updates    int
	gets       int
	lastFilter repository.TicketListFilter
	listResult []domain.Ticket
	listTotal  int
	groups     *fakeGroupRepo

	avgAssign     *float64
	avgResolve    *float64
	metricsFilter repository.TicketMetricsFilter
	users      *fakeUserRepo
}

func newFakeTicketRepo(groups *fakeGroupRepo, users *fakeUserRepo) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[uuid.UUID]*domain.Ticket{}, groups: groups, users: users}
}

func (f *fakeTicketRepo) NextTicketNumber(_ context.Context) (string, error) {
	f.seq++
	return domain.FormatTicketNumber(f.seq), nil
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.creates++
	ticket.ID = uuid.New()
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.updates++
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	f.gets++
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return f.withNames(*ticket), nil
}

func (f *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	for _, ticket := range f.tickets {
		if ticket.TicketNumber == number {
			return f.withNames(*ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) withNames(ticket domain.Ticket) *domain.Ticket {
	if group, ok := f.groups.groups[ticket.AssignedGroupID]; ok {
		ticket.AssignedGroupName = group.Name
	}
	ticket.AssignedUserName = nil
	if ticket.AssignedUserID != nil {
		if user, ok := f.users.users[*ticket.AssignedUserID]; ok {
			name := user.FullName
			ticket.AssignedUserName = &name
		}
	}
	if user, ok := f.users.users[ticket.CreatedByID]; ok {
		ticket.CreatedByName = user.FullName
	}
	return &ticket
}

func (f *fakeTicketRepo) List(_ context.Context, filter repository.TicketListFilter) ([]domain.Ticket, int, error) {
	f.lastFilter = filter
	return f.listResult, f.listTotal, nil
}

func (f *fakeTicketRepo) ListOpenWithTarget(_ context.Context) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for _, ticket := range f.tickets {
		if ticket.Status.IsOpen() && ticket.SLATargetMinutes != nil {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (f *fakeTicketRepo) AverageAssignSeconds(_ context.Context, filter repository.TicketMetricsFilter) (*float64, error) {
	f.metricsFilter = filter
	return f.avgAssign, nil
}

func (f *fakeTicketRepo) AverageResolveSeconds(_ context.Context, filter repository.TicketMetricsFilter) (*float64, error) {
	f.metricsFilter = filter
	return f.avgResolve, nil
}

func (f *fakeTicketRepo) Summary(context.Context) (*domain.DashboardSummary, error) {
	return &domain.DashboardSummary{TotalTickets: len(f.tickets)}, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = fixedNow
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByTicket(_ context.Context, ticketID uuid.UUID) ([]domain.AuditLogEntry, error) {
	result := []domain.AuditLogEntry{}
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].TicketID == ticketID {
			result = append(result, f.entries[i])
		}
	}
	return result, nil
}

func (f *fakeAuditRepo) ListRecent(_ context.Context, limit, offset int) ([]domain.AuditLogEntry, int, error) {
	newest := make([]domain.AuditLogEntry, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		newest = append(newest, f.entries[i])
	}
	return window(newest, limit, offset), len(newest), nil
}

func (f *fakeAuditRepo) forTicket(ticketID uuid.UUID, action domain.AuditAction) []domain.AuditLogEntry {
	result := []domain.AuditLogEntry{}
	for _, entry := range f.entries {
		if entry.TicketID == ticketID && entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}

type fakeNoteRepo struct {
	notes []domain.TicketNote
}

func (f *fakeNoteRepo) Create(_ context.Context, note *domain.TicketNote) error {
	note.ID = uuid.New()
	note.CreatedAt = fixedNow
	note.UpdatedAt = fixedNow
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeNoteRepo) Update(_ context.Context, note *domain.TicketNote) error {
	for i := range f.notes {
		if f.notes[i].ID == note.ID && f.notes[i].TicketID == note.TicketID {
			note.UpdatedAt = fixedNow.Add(time.Minute)
			f.notes[i] = *note
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeNoteRepo) GetByID(_ context.Context, ticketID, noteID uuid.UUID) (*domain.TicketNote, error) {
	for _, note := range f.notes {
		if note.ID == noteID && note.TicketID == ticketID {
			copied := note
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNoteRepo) ListByTicket(_ context.Context, ticketID uuid.UUID) ([]domain.TicketNote, error) {
	result := []domain.TicketNote{}
	for _, note := range f.notes {
		if note.TicketID == ticketID {
			result = append(result, note)
		}
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	attachments map[uuid.UUID]domain.Attachment
	deleted     []uuid.UUID
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: map[uuid.UUID]domain.Attachment{}}
}

func (f *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	attachment.ID = uuid.New()
	attachment.CreatedAt = fixedNow
	f.attachments[attachment.ID] = *attachment
	return nil
}

func (f *fakeAttachmentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Attachment, error) {
	attachment, ok := f.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &attachment, nil
}

func (f *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID uuid.UUID) ([]domain.Attachment, error) {
	result := []domain.Attachment{}
	for _, attachment := range f.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

func (f *fakeAttachmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.attachments, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		result = append(result, event.Type)
	}
	return result
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
