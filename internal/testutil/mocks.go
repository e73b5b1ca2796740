package testutil

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockEmiPlanRepository is a mock implementation of domain.EmiPlanRepository
type MockEmiPlanRepository struct {
	Plans  map[int32]*domain.EmiPlan
	NextID int32
}

// NewMockEmiPlanRepository creates a new MockEmiPlanRepository
func NewMockEmiPlanRepository() *MockEmiPlanRepository {
	return &MockEmiPlanRepository{
		Plans:  make(map[int32]*domain.EmiPlan),
		NextID: 1,
	}
}

// AddPlan adds a plan to the mock repository (helper for tests)
func (m *MockEmiPlanRepository) AddPlan(plan *domain.EmiPlan) {
	if plan.ID == 0 {
		plan.ID = m.NextID
	}
	if plan.ID >= m.NextID {
		m.NextID = plan.ID + 1
	}
	m.Plans[plan.ID] = plan
}

func (m *MockEmiPlanRepository) Create(plan *domain.EmiPlan) (*domain.EmiPlan, error) {
	plan.ID = m.NextID
	m.NextID++
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = plan.CreatedAt
	m.Plans[plan.ID] = plan
	return plan, nil
}

func (m *MockEmiPlanRepository) GetByID(id int32) (*domain.EmiPlan, error) {
	if plan, ok := m.Plans[id]; ok {
		return plan, nil
	}
	return nil, domain.ErrPlanNotFound
}

func (m *MockEmiPlanRepository) List(activeOnly bool) ([]*domain.EmiPlan, error) {
	var ids []int
	for id := range m.Plans {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var plans []*domain.EmiPlan
	for _, id := range ids {
		plan := m.Plans[int32(id)]
		if activeOnly && !plan.IsActive {
			continue
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (m *MockEmiPlanRepository) Update(plan *domain.EmiPlan) (*domain.EmiPlan, error) {
	if _, ok := m.Plans[plan.ID]; !ok {
		return nil, domain.ErrPlanNotFound
	}
	plan.UpdatedAt = time.Now()
	m.Plans[plan.ID] = plan
	return plan, nil
}

func (m *MockEmiPlanRepository) SetActive(id int32, active bool) error {
	plan, ok := m.Plans[id]
	if !ok {
		return domain.ErrPlanNotFound
	}
	plan.IsActive = active
	return nil
}

// MockEmiApplicationRepository is a mock implementation of
// domain.EmiApplicationRepository. It mimics a real datastore: reads return
// copies, and domain mutations only land once Update succeeds — an aliased
// pointer never leaks persisted state.
type MockEmiApplicationRepository struct {
	Applications map[uuid.UUID]*domain.EmiApplication
	UpdateErr    error
}

// NewMockEmiApplicationRepository creates a new MockEmiApplicationRepository
func NewMockEmiApplicationRepository() *MockEmiApplicationRepository {
	return &MockEmiApplicationRepository{
		Applications: make(map[uuid.UUID]*domain.EmiApplication),
	}
}

// AddApplication adds an application to the mock repository (helper for tests)
func (m *MockEmiApplicationRepository) AddApplication(app *domain.EmiApplication) {
	m.Applications[app.ID] = cloneApplication(app)
}

func (m *MockEmiApplicationRepository) Create(app *domain.EmiApplication) (*domain.EmiApplication, error) {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	m.Applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

func (m *MockEmiApplicationRepository) GetByID(id uuid.UUID) (*domain.EmiApplication, error) {
	if app, ok := m.Applications[id]; ok {
		return cloneApplication(app), nil
	}
	return nil, domain.ErrApplicationNotFound
}

func (m *MockEmiApplicationRepository) ListByUser(userID uuid.UUID) ([]*domain.EmiApplication, error) {
	var apps []*domain.EmiApplication
	for _, app := range m.Applications {
		if app.UserID == userID {
			apps = append(apps, cloneApplication(app))
		}
	}
	return apps, nil
}

func (m *MockEmiApplicationRepository) ListOpenByNextDueDate(due time.Time) ([]*domain.EmiApplication, error) {
	var apps []*domain.EmiApplication
	for _, app := range m.Applications {
		if !app.IsOpen() || app.NextDueDate == nil {
			continue
		}
		if util.SameDate(*app.NextDueDate, due) {
			apps = append(apps, cloneApplication(app))
		}
	}
	return apps, nil
}

func (m *MockEmiApplicationRepository) Update(app *domain.EmiApplication) (*domain.EmiApplication, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	if _, ok := m.Applications[app.ID]; !ok {
		return nil, domain.ErrApplicationNotFound
	}
	app.UpdatedAt = time.Now()
	m.Applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

// MockPenaltyLedgerRepository is a mock implementation of
// domain.PenaltyLedgerRepository with the same read/write discipline as the
// application mock: reads return copies and nothing persists without a
// successful Update, so a failed write really is a failed write.
type MockPenaltyLedgerRepository struct {
	Entries   map[uuid.UUID]*domain.PenaltyLedgerEntry
	UpdateErr error
	AppendErr error
}

// NewMockPenaltyLedgerRepository creates a new MockPenaltyLedgerRepository
func NewMockPenaltyLedgerRepository() *MockPenaltyLedgerRepository {
	return &MockPenaltyLedgerRepository{
		Entries: make(map[uuid.UUID]*domain.PenaltyLedgerEntry),
	}
}

// AddEntry adds a ledger entry to the mock repository (helper for tests)
func (m *MockPenaltyLedgerRepository) AddEntry(entry *domain.PenaltyLedgerEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.Entries[entry.ID] = cloneEntry(entry)
}

func (m *MockPenaltyLedgerRepository) Create(entry *domain.PenaltyLedgerEntry) (*domain.PenaltyLedgerEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Version = 1
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	m.Entries[entry.ID] = cloneEntry(entry)
	return cloneEntry(entry), nil
}

func (m *MockPenaltyLedgerRepository) GetByID(id uuid.UUID) (*domain.PenaltyLedgerEntry, error) {
	if entry, ok := m.Entries[id]; ok {
		return cloneEntry(entry), nil
	}
	return nil, domain.ErrLedgerEntryNotFound
}

func (m *MockPenaltyLedgerRepository) GetByApplicationAndInstallment(applicationID uuid.UUID, installmentNumber int32) (*domain.PenaltyLedgerEntry, error) {
	for _, entry := range m.Entries {
		if entry.ApplicationID == applicationID && entry.InstallmentNumber == installmentNumber {
			return cloneEntry(entry), nil
		}
	}
	return nil, domain.ErrLedgerEntryNotFound
}

func (m *MockPenaltyLedgerRepository) ListByApplication(applicationID uuid.UUID) ([]*domain.PenaltyLedgerEntry, error) {
	var entries []*domain.PenaltyLedgerEntry
	for _, entry := range m.Entries {
		if entry.ApplicationID == applicationID {
			entries = append(entries, cloneEntry(entry))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstallmentNumber < entries[j].InstallmentNumber
	})
	return entries, nil
}

func (m *MockPenaltyLedgerRepository) ListOpenDueBefore(date time.Time) ([]*domain.PenaltyLedgerEntry, error) {
	var entries []*domain.PenaltyLedgerEntry
	for _, entry := range m.Entries {
		if entry.Accruable() && util.DateOnly(entry.DueDate).Before(util.DateOnly(date)) {
			entries = append(entries, cloneEntry(entry))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DueDate.Before(entries[j].DueDate)
	})
	return entries, nil
}

func (m *MockPenaltyLedgerRepository) Update(entry *domain.PenaltyLedgerEntry) (*domain.PenaltyLedgerEntry, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	stored, ok := m.Entries[entry.ID]
	if !ok {
		return nil, domain.ErrLedgerEntryNotFound
	}
	if stored.Version != entry.Version {
		return nil, domain.ErrVersionConflict
	}
	entry.Version++
	entry.UpdatedAt = time.Now()
	m.Entries[entry.ID] = cloneEntry(entry)
	return cloneEntry(entry), nil
}

func (m *MockPenaltyLedgerRepository) AppendNotification(entryID uuid.UUID, rec domain.NotificationRecord) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	entry, ok := m.Entries[entryID]
	if !ok {
		return domain.ErrLedgerEntryNotFound
	}
	entry.Notifications = append(entry.Notifications, rec)
	return nil
}

func (m *MockPenaltyLedgerRepository) SetNotificationStatus(entryID uuid.UUID, t domain.NotificationType, status string) error {
	entry, ok := m.Entries[entryID]
	if !ok {
		return domain.ErrLedgerEntryNotFound
	}
	for i := range entry.Notifications {
		if entry.Notifications[i].Type == t {
			entry.Notifications[i].DeliveryStatus = status
		}
	}
	return nil
}

// MockEligibilityChecker is a mock implementation of domain.EligibilityChecker
type MockEligibilityChecker struct {
	Approved    bool
	CreditLimit decimal.Decimal
	Err         error
	Calls       int
}

func (m *MockEligibilityChecker) Check(ctx context.Context, userID uuid.UUID, principal decimal.Decimal) (*domain.EligibilityResult, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	limit := m.CreditLimit
	if limit.IsZero() && m.Approved {
		limit = principal
	}
	return &domain.EligibilityResult{Approved: m.Approved, CreditLimit: limit}, nil
}

// SentNotification captures one call to the mock sink.
type SentNotification struct {
	UserID       uuid.UUID
	TemplateType domain.NotificationType
}

// MockNotificationSink is a mock implementation of domain.NotificationSink
type MockNotificationSink struct {
	Sent    []SentNotification
	FailFor map[domain.NotificationType]bool
}

// NewMockNotificationSink creates a new MockNotificationSink
func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{FailFor: make(map[domain.NotificationType]bool)}
}

func (m *MockNotificationSink) Send(ctx context.Context, n domain.Notification) (*domain.NotificationOutcome, error) {
	if m.FailFor[n.TemplateType] {
		return nil, fmt.Errorf("sink unavailable for %s", n.TemplateType)
	}
	m.Sent = append(m.Sent, SentNotification{UserID: n.UserID, TemplateType: n.TemplateType})
	return &domain.NotificationOutcome{Channel: "sns", Delivered: true, ProviderID: uuid.NewString()}, nil
}

// CountByType returns how many notifications of a type were sent.
func (m *MockNotificationSink) CountByType(t domain.NotificationType) int {
	count := 0
	for _, s := range m.Sent {
		if s.TemplateType == t {
			count++
		}
	}
	return count
}

func cloneApplication(app *domain.EmiApplication) *domain.EmiApplication {
	clone := *app
	clone.NextDueDate = copyPtr(app.NextDueDate)
	clone.ApprovedAt = copyPtr(app.ApprovedAt)
	clone.Installments = make([]domain.Installment, len(app.Installments))
	for i, inst := range app.Installments {
		inst.PaidDate = copyPtr(inst.PaidDate)
		inst.PaymentReference = copyPtr(inst.PaymentReference)
		clone.Installments[i] = inst
	}
	return &clone
}

func cloneEntry(entry *domain.PenaltyLedgerEntry) *domain.PenaltyLedgerEntry {
	clone := *entry
	clone.MissedDate = copyPtr(entry.MissedDate)
	clone.PaidAmount = copyPtr(entry.PaidAmount)
	clone.PaidDate = copyPtr(entry.PaidDate)
	clone.PaymentReference = copyPtr(entry.PaymentReference)
	clone.WaivedReason = copyPtr(entry.WaivedReason)
	clone.WaivedBy = copyPtr(entry.WaivedBy)
	clone.WaivedAt = copyPtr(entry.WaivedAt)
	clone.Notifications = append([]domain.NotificationRecord(nil), entry.Notifications...)
	return &clone
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
