package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/sanitize"
	"github.com/accio/servicemeow/internal/sla"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	groups     *fakeGroupRepo
	users      *fakeUserRepo
	slaConfigs *fakeSLAConfigRepo
	audit      *fakeAuditRepo
	noteRepo   *fakeNoteRepo
	tx         *fakeTx
	dispatcher *recordingDispatcher
	clock      *fakeClock

	agent    *domain.User
	alice    *domain.User
	bob      *domain.User
	outsider *domain.User
	network  *domain.Group
	database *domain.Group
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	users := newFakeUserRepo()
	groups := newFakeGroupRepo(users)
	f := &ticketFixture{
		users:  users,
		groups: groups,
		slaConfigs: newFakeSLAConfigRepo(
			domain.SlaConfig{Priority: domain.TicketPriorityCritical, TargetAssignMinutes: 15, TargetResolveMinutes: 240},
			domain.SlaConfig{Priority: domain.TicketPriorityLow, TargetAssignMinutes: 480, TargetResolveMinutes: 4320},
		),
		audit:      &fakeAuditRepo{},
		noteRepo:   &fakeNoteRepo{},
		tx:         &fakeTx{},
		dispatcher: &recordingDispatcher{},
		clock:      &fakeClock{now: fixedNow},
	}
	f.tickets = newFakeTicketRepo(groups, users)

	f.agent = users.add("agent", "Agent Smith", domain.UserRoleAgent)
	f.alice = users.add("alice", "Alice Doe", domain.UserRoleAgent)
	f.bob = users.add("bob", "Bob Roe", domain.UserRoleAgent)
	f.outsider = users.add("carol", "Carol Poe", domain.UserRoleAgent)
	f.network = groups.add("Network", f.alice, f.bob)
	f.database = groups.add("Database", f.bob)

	notes := NewNoteService(NoteDependencies{
		NoteRepo:   f.noteRepo,
		TicketRepo: f.tickets,
		UserRepo:   users,
		Audit:      NewAuditService(f.audit),
		Tx:         f.tx,
		Sanitizer:  sanitize.NewHTMLSanitizer(),
		Dispatcher: f.dispatcher,
		Clock:      f.clock.Now,
	})
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		UserRepo:       users,
		SLAConfigRepo:  f.slaConfigs,
		NoteRepo:       f.noteRepo,
		AttachmentRepo: newFakeAttachmentRepo(),
		Assignment:     NewAssignmentService(groups),
		Audit:          NewAuditService(f.audit),
		Notes:          notes,
		Tx:             f.tx,
		Sanitizer:      sanitize.NewHTMLSanitizer(),
		Calculator:     &sla.Calculator{Now: f.clock.Now},
		Dispatcher:     f.dispatcher,
		Clock:          f.clock.Now,
	})
	return f
}

func (f *ticketFixture) actor() domain.Actor {
	return domain.Actor{ID: f.agent.ID, Role: f.agent.Role, Kind: domain.AuthKindJWT}
}

func (f *ticketFixture) create(t *testing.T, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), f.actor(), input)
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketFreezesTargetsAndStampsAssignment(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.create(t, TicketCreateInput{
		Title:           "VPN down",
		Description:     `<p>Cannot connect</p><script>alert(1)</script>`,
		Priority:        domain.TicketPriorityCritical,
		AssignedGroupID: f.network.ID,
		AssignedUserID:  &f.alice.ID,
	})

	assert.Equal(t, "ASM-0001", ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, fixedNow, ticket.CreatedAt)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
	require.NotNil(t, ticket.FirstAssignedAt)
	assert.Equal(t, ticket.CreatedAt, *ticket.FirstAssignedAt)
	require.NotNil(t, ticket.SLATargetMinutes)
	assert.Equal(t, 240, *ticket.SLATargetMinutes)
	require.NotNil(t, ticket.SLATargetAssignMinutes)
	assert.Equal(t, 15, *ticket.SLATargetAssignMinutes)
	assert.NotContains(t, ticket.Description, "<script>")
	assert.Contains(t, ticket.Description, "Cannot connect")
	assert.Equal(t, "Network", ticket.AssignedGroupName)
	assert.Equal(t, "Agent Smith", ticket.CreatedByName)

	created := f.audit.forTicket(ticket.ID, domain.AuditActionCreated)
	require.Len(t, created, 1)
	assert.Equal(t, domain.ActorTypeUser, created[0].ActorType)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.dispatcher.types())
}

func TestCreateTicketWithoutSLARowLeavesTargetsNull(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.create(t, TicketCreateInput{
		Title:           "Printer jam",
		Description:     "paper stuck",
		Priority:        domain.TicketPriorityMedium,
		AssignedGroupID: f.network.ID,
	})

	assert.Nil(t, ticket.SLATargetMinutes)
	assert.Nil(t, ticket.SLATargetAssignMinutes)
	assert.Nil(t, ticket.FirstAssignedAt)

	detail, err := f.svc.GetDetail(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.SLAStatus)
	assert.Nil(t, detail.MTTAStatus)
}

func TestCreateTicketRejectsInvalidAssignment(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Create(context.Background(), f.actor(), TicketCreateInput{
		Title:           "Disk full",
		Description:     "db01",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
		AssignedUserID:  &f.outsider.ID,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Zero(t, f.tickets.creates)
	assert.Empty(t, f.audit.entries)

	_, err = f.svc.Create(context.Background(), f.actor(), TicketCreateInput{
		Title:           "Disk full",
		Description:     "db01",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: uuid.New(),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Zero(t, f.tickets.creates)
	assert.Empty(t, f.dispatcher.types())
}

func TestUpdateWithUnchangedFieldsWritesNothing(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "Same",
		Description:     "body",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})
	before := len(f.audit.entries)

	updated, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		Title:    domain.Some("Same"),
		Priority: domain.Some(domain.TicketPriorityLow),
	})
	require.NoError(t, err)

	assert.Equal(t, before, len(f.audit.entries))
	assert.Zero(t, f.tickets.updates)
	assert.Equal(t, ticket.UpdatedAt, updated.UpdatedAt)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.dispatcher.types())
}

func TestUpdatePriorityRecordsOneEntry(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "Slow queries",
		Description:     "reports",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})
	f.clock.Advance(5 * time.Minute)

	updated, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		Priority: domain.Some(domain.TicketPriorityCritical),
	})
	require.NoError(t, err)

	entries := f.audit.forTicket(ticket.ID, domain.AuditActionUpdated)
	require.Len(t, entries, 1)
	assert.Equal(t, "priority", *entries[0].FieldChanged)
	assert.Equal(t, "low", *entries[0].OldValue)
	assert.Equal(t, "critical", *entries[0].NewValue)
	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)
	assert.Equal(t, fixedNow.Add(5*time.Minute), updated.UpdatedAt)
	// Targets stay frozen at the values copied on create.
	assert.Equal(t, 4320, *updated.SLATargetMinutes)
}

func TestUpdateRecordsFieldsInFixedOrder(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "Old",
		Description:     "old body",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})

	_, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		AssignedUserID:  domain.Some(f.bob.ID),
		AssignedGroupID: domain.Some(f.database.ID),
		Status:          domain.Some(domain.TicketStatusUnderInvestigation),
		Title:           domain.Some("New"),
	})
	require.NoError(t, err)

	entries := f.audit.forTicket(ticket.ID, domain.AuditActionUpdated)
	fields := make([]string, 0, len(entries))
	for _, entry := range entries {
		fields = append(fields, *entry.FieldChanged)
	}
	assert.Equal(t, []string{"title", "status", "assigned_group_id", "assigned_user_id"}, fields)
	assert.Equal(t, "Network", *entries[2].OldValue)
	assert.Equal(t, "Database", *entries[2].NewValue)
	assert.Nil(t, entries[3].OldValue)
	assert.Equal(t, "Bob Roe", *entries[3].NewValue)
}

func TestFirstAssignedAtIsSetOnce(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "Unassigned",
		Description:     "body",
		Priority:        domain.TicketPriorityCritical,
		AssignedGroupID: f.network.ID,
	})
	require.Nil(t, ticket.FirstAssignedAt)

	f.clock.Advance(10 * time.Minute)
	assigned, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		AssignedUserID: domain.Some(f.alice.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, assigned.FirstAssignedAt)
	firstAssigned := *assigned.FirstAssignedAt
	assert.Equal(t, fixedNow.Add(10*time.Minute), firstAssigned)

	f.clock.Advance(time.Hour)
	reassigned, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		AssignedUserID: domain.Some(f.bob.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, firstAssigned, *reassigned.FirstAssignedAt)

	unassigned, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		AssignedUserID: domain.Null[uuid.UUID](),
	})
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedUserID)
	assert.Equal(t, firstAssigned, *unassigned.FirstAssignedAt)

	detail, err := f.svc.GetDetail(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.MTTAStatus)
	assert.Equal(t, 10, detail.MTTAStatus.ElapsedMinutes)
	assert.True(t, detail.MTTAStatus.IsMet)
	assert.False(t, detail.MTTAStatus.IsPending)
}

func TestUpdateRejectsNullGroupBeforeLoading(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "T",
		Description:     "D",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})
	gets := f.tickets.gets

	_, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		AssignedGroupID: domain.Null[uuid.UUID](),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Equal(t, gets, f.tickets.gets)
	assert.Zero(t, f.tickets.updates)
}

func TestUpdateRejectsNonMemberWithoutWriting(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "T",
		Description:     "D",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
		AssignedUserID:  &f.alice.ID,
	})

	// Moving to a group the current assignee is not part of fails as a whole.
	_, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		AssignedGroupID: domain.Some(f.database.ID),
		Title:           domain.Some("changed"),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Zero(t, f.tickets.updates)
	assert.Empty(t, f.audit.forTicket(ticket.ID, domain.AuditActionUpdated))
}

func TestUpdateMissingTicketAndInvalidEnum(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Update(context.Background(), f.actor(), uuid.New(), TicketPatch{Title: domain.Some("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Update(context.Background(), f.actor(), uuid.New(), TicketPatch{
		Status: domain.Some(domain.TicketStatus("closed")),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestResolveWithinTargetReportsOutcome(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "Outage",
		Description:     "core switch",
		Priority:        domain.TicketPriorityCritical,
		AssignedGroupID: f.network.ID,
		AssignedUserID:  &f.alice.ID,
	})

	f.clock.Advance(100 * time.Minute)
	resolved, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		Status: domain.Some(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, fixedNow.Add(100*time.Minute), *resolved.ResolvedAt)

	// Elapsed time stops at resolution.
	f.clock.Advance(24 * time.Hour)
	detail, err := f.svc.GetDetail(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.SLAStatus)
	assert.Equal(t, 100, detail.SLAStatus.ElapsedMinutes)
	assert.True(t, detail.SLAStatus.IsResolved)
	require.NotNil(t, detail.SLAStatus.Outcome)
	assert.Equal(t, sla.OutcomeWithinSLA, *detail.SLAStatus.Outcome)
	assert.Len(t, detail.AuditLog, 2)
	assert.Equal(t, domain.AuditActionUpdated, detail.AuditLog[0].Action)
}

func TestSoftDeleteKeepsExistingResolvedAt(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "T",
		Description:     "D",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})
	f.clock.Advance(time.Minute)
	_, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		Status: domain.Some(domain.TicketStatusResolved),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.svc.SoftDelete(context.Background(), f.actor(), ticket.ID))

	stored, err := f.svc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	assert.Equal(t, fixedNow.Add(time.Minute), *stored.ResolvedAt)

	deleted := f.audit.forTicket(ticket.ID, domain.AuditActionDeleted)
	require.Len(t, deleted, 1)
	assert.Nil(t, deleted[0].FieldChanged)

	err = f.svc.SoftDelete(context.Background(), f.actor(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestResolveTicketRef(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "T",
		Description:     "D",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})

	id, err := f.svc.ResolveTicketRef(context.Background(), "asm-0001")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, id)

	id, err = f.svc.ResolveTicketRef(context.Background(), ticket.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, id)

	_, err = f.svc.ResolveTicketRef(context.Background(), "ASM-9999")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = f.svc.ResolveTicketRef(context.Background(), "not-a-ticket")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestListBuildsFilterAndPage(t *testing.T) {
	f := newTicketFixture(t)
	f.tickets.listResult = []domain.Ticket{{TicketNumber: "ASM-0003"}}
	f.tickets.listTotal = 21

	page, err := f.svc.List(context.Background(), TicketListQuery{
		Status:    "open, under_investigation",
		Priority:  "high",
		SortBy:    "priority",
		SortOrder: "asc",
		Page:      PageRequest{Page: 3, PageSize: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusUnderInvestigation}, f.tickets.lastFilter.Statuses)
	require.NotNil(t, f.tickets.lastFilter.Priority)
	assert.Equal(t, domain.TicketPriorityHigh, *f.tickets.lastFilter.Priority)
	assert.Equal(t, 10, f.tickets.lastFilter.Limit)
	assert.Equal(t, 20, f.tickets.lastFilter.Offset)
	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Items, 1)

	_, err = f.svc.List(context.Background(), TicketListQuery{Status: "open,closed"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestNewPage(t *testing.T) {
	empty := NewPage[int](nil, 0, 1, 25)
	assert.Equal(t, 0, empty.Pages)
	assert.NotNil(t, empty.Items)

	assert.Equal(t, 1, NewPage([]int{1}, 25, 1, 25).Pages)
	assert.Equal(t, 2, NewPage([]int{1}, 26, 2, 25).Pages)

	req := PageRequest{Page: 0, PageSize: 500}.Normalize(25, 100)
	assert.Equal(t, PageRequest{Page: 1, PageSize: 100}, req)
	assert.Equal(t, 0, req.Offset())
}

func TestUpdateTrimsTitleBeforeComparing(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "  Badge reader  ",
		Description:     "lobby",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})
	require.Equal(t, "Badge reader", ticket.Title)

	updated, err := f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		Title: domain.Some("\tBadge reader "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Badge reader", updated.Title)
	assert.Zero(t, f.tickets.updates)
	assert.Empty(t, f.audit.forTicket(ticket.ID, domain.AuditActionUpdated))

	updated, err = f.svc.Update(context.Background(), f.actor(), ticket.ID, TicketPatch{
		Title: domain.Some("  Badge reader offline  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Badge reader offline", updated.Title)
	entries := f.audit.forTicket(ticket.ID, domain.AuditActionUpdated)
	require.Len(t, entries, 1)
	assert.Equal(t, "Badge reader offline", *entries[0].NewValue)
}

func TestResolveAddsNoteAndResolvesInOneTransaction(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "PSU failure",
		Description:     "rack 4",
		Priority:        domain.TicketPriorityCritical,
		AssignedGroupID: f.network.ID,
	})
	calls := f.tx.calls
	f.clock.Advance(30 * time.Minute)

	resolved, err := f.svc.Resolve(context.Background(), f.actor(), ticket.ID, "<p>Replaced PSU</p>")
	require.NoError(t, err)

	assert.Equal(t, calls+1, f.tx.calls)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, fixedNow.Add(30*time.Minute), *resolved.ResolvedAt)

	require.Len(t, f.noteRepo.notes, 1)
	assert.Contains(t, f.noteRepo.notes[0].Content, "Replaced PSU")
	assert.False(t, f.noteRepo.notes[0].IsInternal)
	assert.Len(t, f.audit.forTicket(ticket.ID, domain.AuditActionNoteAdded), 1)
	statusEntries := f.audit.forTicket(ticket.ID, domain.AuditActionUpdated)
	require.Len(t, statusEntries, 1)
	assert.Equal(t, "status", *statusEntries[0].FieldChanged)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventNoteAdded,
		events.EventTicketUpdated,
	}, f.dispatcher.types())
}

func TestResolveWithoutNoteOnlyChangesStatus(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{
		Title:           "T",
		Description:     "D",
		Priority:        domain.TicketPriorityLow,
		AssignedGroupID: f.network.ID,
	})

	resolved, err := f.svc.Resolve(context.Background(), f.actor(), ticket.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Empty(t, f.noteRepo.notes)
	assert.Empty(t, f.audit.forTicket(ticket.ID, domain.AuditActionNoteAdded))
}

func TestResolveMissingTicketWritesNothing(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Resolve(context.Background(), f.actor(), uuid.New(), "fixed")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Equal(t, 1, f.tx.rollbacks)
	assert.Empty(t, f.noteRepo.notes)
	assert.Empty(t, f.dispatcher.types())
}

func TestBulkUpdateAppliesPatchToEveryTicket(t *testing.T) {
	f := newTicketFixture(t)
	first := f.create(t, TicketCreateInput{Title: "A", Description: "D", Priority: domain.TicketPriorityLow, AssignedGroupID: f.network.ID})
	second := f.create(t, TicketCreateInput{Title: "B", Description: "D", Priority: domain.TicketPriorityLow, AssignedGroupID: f.database.ID})
	calls := f.tx.calls

	updated, err := f.svc.BulkUpdate(context.Background(), f.actor(), []uuid.UUID{first.ID, second.ID, first.ID}, TicketPatch{
		Status:          domain.Some(domain.TicketStatusUnderInvestigation),
		AssignedGroupID: domain.Some(f.network.ID),
		AssignedUserID:  domain.Some(f.bob.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, calls+1, f.tx.calls)

	require.Len(t, updated, 2)
	for _, ticket := range updated {
		assert.Equal(t, domain.TicketStatusUnderInvestigation, ticket.Status)
		assert.Equal(t, f.network.ID, ticket.AssignedGroupID)
		require.NotNil(t, ticket.AssignedUserID)
		assert.Equal(t, f.bob.ID, *ticket.AssignedUserID)
	}
	assert.Len(t, f.audit.forTicket(first.ID, domain.AuditActionUpdated), 2)
	assert.Len(t, f.audit.forTicket(second.ID, domain.AuditActionUpdated), 3)
	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketUpdated,
	}, f.dispatcher.types())
}

func TestBulkUpdateStopsAtFirstFailure(t *testing.T) {
	f := newTicketFixture(t)
	unassigned := f.create(t, TicketCreateInput{Title: "A", Description: "D", Priority: domain.TicketPriorityLow, AssignedGroupID: f.network.ID})
	withAlice := f.create(t, TicketCreateInput{Title: "B", Description: "D", Priority: domain.TicketPriorityLow, AssignedGroupID: f.network.ID, AssignedUserID: &f.alice.ID})
	untouched := f.create(t, TicketCreateInput{Title: "C", Description: "D", Priority: domain.TicketPriorityLow, AssignedGroupID: f.network.ID})

	// Alice is not a Database member, so the second ticket cannot move.
	_, err := f.svc.BulkUpdate(context.Background(), f.actor(), []uuid.UUID{unassigned.ID, withAlice.ID, untouched.ID}, TicketPatch{
		AssignedGroupID: domain.Some(f.database.ID),
	})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, withAlice.ID.String(), domainErr.Details["ticket_id"])
	assert.Contains(t, domainErr.Message, withAlice.ID.String())

	assert.Equal(t, 1, f.tx.rollbacks)
	assert.Empty(t, f.audit.forTicket(untouched.ID, domain.AuditActionUpdated))
	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketCreated,
		events.EventTicketCreated,
	}, f.dispatcher.types())
}

func TestBulkUpdateRejectsBadRequests(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, TicketCreateInput{Title: "A", Description: "D", Priority: domain.TicketPriorityLow, AssignedGroupID: f.network.ID})
	calls := f.tx.calls

	tests := []struct {
		name  string
		ids   []uuid.UUID
		patch TicketPatch
	}{
		{"no tickets", nil, TicketPatch{Status: domain.Some(domain.TicketStatusResolved)}},
		{"empty patch", []uuid.UUID{ticket.ID}, TicketPatch{}},
		{"content field", []uuid.UUID{ticket.ID}, TicketPatch{Title: domain.Some("x")}},
		{"null group", []uuid.UUID{ticket.ID}, TicketPatch{AssignedGroupID: domain.Null[uuid.UUID]()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BulkUpdate(context.Background(), f.actor(), tt.ids, tt.patch)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
		})
	}
	assert.Equal(t, calls, f.tx.calls)
}

func TestListMineFiltersByActor(t *testing.T) {
	f := newTicketFixture(t)
	f.tickets.listResult = []domain.Ticket{{TicketNumber: "ASM-0007"}}
	f.tickets.listTotal = 1

	page, err := f.svc.ListMine(context.Background(), f.actor(), "open", PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NotNil(t, f.tickets.lastFilter.AssignedUserID)
	assert.Equal(t, f.agent.ID, *f.tickets.lastFilter.AssignedUserID)
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusOpen}, f.tickets.lastFilter.Statuses)
	assert.Equal(t, defaultTicketPageSize, f.tickets.lastFilter.Limit)
}
