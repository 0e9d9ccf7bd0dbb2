package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memDB хранилище в памяти с теми же условными переходами, что и SQL-репозитории
type memDB struct {
	seq       int64
	teachers  map[int64]model.Teacher
	schedules map[int64]model.RecurringSchedule
	bookings  map[int64]model.Booking
	sessions  map[int64]model.Session // по booking_id
	payments  map[int64]model.Payment // по booking_id
	wallets   map[int64]model.TeacherWallet
	txns      []model.WalletTransaction
	revenues  []model.PlatformRevenue
	payouts   map[int64]model.PayoutRequest
	failures  map[string]func() error
}

func newMemDB() *memDB {
	return &memDB{
		teachers:  make(map[int64]model.Teacher),
		schedules: make(map[int64]model.RecurringSchedule),
		bookings:  make(map[int64]model.Booking),
		sessions:  make(map[int64]model.Session),
		payments:  make(map[int64]model.Payment),
		wallets:   make(map[int64]model.TeacherWallet),
		payouts:   make(map[int64]model.PayoutRequest),
		failures:  make(map[string]func() error),
	}
}

func (db *memDB) nextID() int64 {
	db.seq++
	return db.seq
}

func (db *memDB) fail(op string) error {
	if f, ok := db.failures[op]; ok {
		return f()
	}
	return nil
}

func (db *memDB) snapshot() memDB {
	return memDB{
		seq:       db.seq,
		teachers:  maps.Clone(db.teachers),
		schedules: maps.Clone(db.schedules),
		bookings:  maps.Clone(db.bookings),
		sessions:  maps.Clone(db.sessions),
		payments:  maps.Clone(db.payments),
		wallets:   maps.Clone(db.wallets),
		txns:      slices.Clone(db.txns),
		revenues:  slices.Clone(db.revenues),
		payouts:   maps.Clone(db.payouts),
		failures:  db.failures,
	}
}

// fakeTx откатывает состояние memDB, если fn вернула ошибку
type fakeTx struct {
	db    *memDB
	depth int
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.depth > 0 {
		return fn(ctx)
	}
	snap := t.db.snapshot()
	t.depth++
	err := fn(ctx)
	t.depth--
	if err != nil {
		*t.db = snap
	}
	return err
}

type fakeTeachers struct{ db *memDB }

func (f fakeTeachers) GetByID(_ context.Context, id int64) (*model.Teacher, error) {
	t, ok := f.db.teachers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f fakeTeachers) GetByUserID(_ context.Context, userID int64) (*model.Teacher, error) {
	for _, t := range f.db.teachers {
		if t.UserID == userID {
			return &t, nil
		}
	}
	return nil, nil
}

type fakeSchedules struct{ db *memDB }

func (f fakeSchedules) GetByID(_ context.Context, id int64) (*model.RecurringSchedule, error) {
	s, ok := f.db.schedules[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f fakeSchedules) GetActiveByTeacherID(_ context.Context, teacherID int64) ([]*model.RecurringSchedule, error) {
	result := make([]*model.RecurringSchedule, 0)
	for _, s := range f.db.schedules {
		if s.TeacherID == teacherID && s.IsActive {
			result = append(result, &s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeBookings struct{ db *memDB }

func isActiveBooking(b model.Booking) bool {
	return b.Status != model.BookingStatusCanceled && b.Status != model.BookingStatusRejected
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func (f fakeBookings) Create(_ context.Context, booking *model.Booking) error {
	if err := f.db.fail("bookings.Create"); err != nil {
		return err
	}
	for _, b := range f.db.bookings {
		if isActiveBooking(b) && b.StudentID == booking.StudentID && b.TeacherID == booking.TeacherID &&
			sameDay(b.Date, booking.Date) && b.StartTime == booking.StartTime {
			return fmt.Errorf("create booking: %w", repository.ErrDuplicate)
		}
	}
	booking.ID = f.db.nextID()
	f.db.bookings[booking.ID] = *booking
	return nil
}

func (f fakeBookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	b, ok := f.db.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f fakeBookings) filter(match func(b model.Booking) bool) []*model.Booking {
	result := make([]*model.Booking, 0)
	for _, b := range f.db.bookings {
		if match(b) {
			result = append(result, &b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result
}

func (f fakeBookings) newestFirst(match func(b model.Booking) bool) []*model.Booking {
	result := f.filter(match)
	slices.Reverse(result)
	return result
}

func (f fakeBookings) ListByStudent(_ context.Context, studentID int64, status *model.BookingStatus) ([]*model.Booking, error) {
	return f.newestFirst(func(b model.Booking) bool {
		return b.StudentID == studentID && (status == nil || b.Status == *status)
	}), nil
}

func (f fakeBookings) ListByTeacher(_ context.Context, teacherID int64, status *model.BookingStatus) ([]*model.Booking, error) {
	return f.newestFirst(func(b model.Booking) bool {
		return b.TeacherID == teacherID && (status == nil || b.Status == *status)
	}), nil
}

func (f fakeBookings) UpdateStatus(_ context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) (*model.Booking, error) {
	b, ok := f.db.bookings[id]
	if !ok || !slices.Contains(from, b.Status) {
		return nil, nil
	}
	b.Status = to
	f.db.bookings[id] = b
	return &b, nil
}

func (f fakeBookings) Cancel(_ context.Context, id int64, from []model.BookingStatus, canceledBy string, at time.Time) (*model.Booking, error) {
	b, ok := f.db.bookings[id]
	if !ok || !slices.Contains(from, b.Status) {
		return nil, nil
	}
	b.Status = model.BookingStatusCanceled
	b.CanceledAt = &at
	b.CanceledBy = &canceledBy
	f.db.bookings[id] = b
	return &b, nil
}

func (f fakeBookings) CancelNoShow(ctx context.Context, id int64, at time.Time) (*model.Booking, error) {
	if err := f.db.fail("bookings.CancelNoShow"); err != nil {
		return nil, err
	}
	if _, ok := f.db.sessions[id]; ok {
		return nil, nil
	}
	return f.Cancel(ctx, id, []model.BookingStatus{model.BookingStatusConfirmed}, model.CanceledBySystem, at)
}

func (f fakeBookings) HasActiveAt(_ context.Context, studentID, teacherID int64, date time.Time, startTime string) (bool, error) {
	for _, b := range f.db.bookings {
		if isActiveBooking(b) && b.StudentID == studentID && b.TeacherID == teacherID &&
			sameDay(b.Date, date) && b.StartTime == startTime {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBookings) ActiveDates(_ context.Context, studentID, teacherID int64, startTime string, from, to time.Time) ([]time.Time, error) {
	dates := make([]time.Time, 0)
	for _, b := range f.db.bookings {
		day := b.Date.Format(time.DateOnly)
		if isActiveBooking(b) && b.StudentID == studentID && b.TeacherID == teacherID && b.StartTime == startTime &&
			day >= from.Format(time.DateOnly) && day <= to.Format(time.DateOnly) {
			dates = append(dates, b.Date)
		}
	}
	return dates, nil
}

func (f fakeBookings) ListConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	return f.filter(func(b model.Booking) bool {
		return b.Status == model.BookingStatusConfirmed && b.StartsAt.After(from) && !b.StartsAt.After(to)
	}), nil
}

func (f fakeBookings) ListNoShowCandidates(_ context.Context, cutoff time.Time) ([]*model.Booking, error) {
	return f.filter(func(b model.Booking) bool {
		_, hasSession := f.db.sessions[b.ID]
		return b.Status == model.BookingStatusConfirmed && !b.StartsAt.After(cutoff) && !hasSession
	}), nil
}

func (f fakeBookings) ListAutoSessionCandidates(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	return f.filter(func(b model.Booking) bool {
		_, hasSession := f.db.sessions[b.ID]
		p, hasPayment := f.db.payments[b.ID]
		return b.Status == model.BookingStatusConfirmed && !hasSession &&
			hasPayment && p.Status == model.PaymentStatusCompleted &&
			!b.StartsAt.Before(from) && !b.StartsAt.After(to)
	}), nil
}

func (f fakeBookings) ListFinishedWithOpenSession(_ context.Context, now time.Time) ([]*model.Booking, error) {
	return f.filter(func(b model.Booking) bool {
		s, hasSession := f.db.sessions[b.ID]
		return b.Status == model.BookingStatusConfirmed && hasSession && s.EndedAt == nil && !b.EndsAt().After(now)
	}), nil
}

type fakeSessions struct{ db *memDB }

func (f fakeSessions) Create(_ context.Context, session *model.Session) (bool, error) {
	if err := f.db.fail("sessions.Create"); err != nil {
		return false, err
	}
	if _, ok := f.db.sessions[session.BookingID]; ok {
		return false, nil
	}
	session.ID = f.db.nextID()
	session.CreatedAt = session.StartedAt
	f.db.sessions[session.BookingID] = *session
	return true, nil
}

func (f fakeSessions) GetByBookingID(_ context.Context, bookingID int64) (*model.Session, error) {
	s, ok := f.db.sessions[bookingID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f fakeSessions) End(_ context.Context, bookingID int64, at time.Time) (*model.Session, error) {
	s, ok := f.db.sessions[bookingID]
	if !ok || s.EndedAt != nil {
		return nil, nil
	}
	minutes := max(0, int(at.Sub(s.StartedAt)/time.Minute))
	s.EndedAt = &at
	s.DurationMinutes = &minutes
	f.db.sessions[bookingID] = s
	return &s, nil
}

type fakePayments struct{ db *memDB }

func (f fakePayments) Create(_ context.Context, payment *model.Payment) error {
	if _, ok := f.db.payments[payment.BookingID]; ok {
		return fmt.Errorf("create payment: %w", repository.ErrDuplicate)
	}
	payment.ID = f.db.nextID()
	f.db.payments[payment.BookingID] = *payment
	return nil
}

func (f fakePayments) GetByBookingID(_ context.Context, bookingID int64) (*model.Payment, error) {
	p, ok := f.db.payments[bookingID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f fakePayments) transition(bookingID int64, from []model.PaymentStatus, to model.PaymentStatus, externalID string) *model.Payment {
	p, ok := f.db.payments[bookingID]
	if !ok || !slices.Contains(from, p.Status) {
		return nil
	}
	p.Status = to
	if externalID != "" {
		p.ExternalPaymentID = externalID
	}
	f.db.payments[bookingID] = p
	return &p
}

func (f fakePayments) MarkCompleted(_ context.Context, bookingID int64, externalPaymentID string, _ time.Time) (*model.Payment, error) {
	return f.transition(bookingID,
		[]model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusFailed},
		model.PaymentStatusCompleted, externalPaymentID), nil
}

func (f fakePayments) MarkFailed(_ context.Context, bookingID int64, externalPaymentID string, _ time.Time) (*model.Payment, error) {
	return f.transition(bookingID,
		[]model.PaymentStatus{model.PaymentStatusPending},
		model.PaymentStatusFailed, externalPaymentID), nil
}

type fakeWallets struct{ db *memDB }

func (f fakeWallets) byID(walletID int64) (model.TeacherWallet, bool) {
	for _, w := range f.db.wallets {
		if w.ID == walletID {
			return w, true
		}
	}
	return model.TeacherWallet{}, false
}

func (f fakeWallets) GetOrCreate(_ context.Context, teacherID int64) (*model.TeacherWallet, error) {
	w, ok := f.db.wallets[teacherID]
	if !ok {
		w = model.TeacherWallet{ID: f.db.nextID(), TeacherID: teacherID}
		f.db.wallets[teacherID] = w
	}
	return &w, nil
}

func (f fakeWallets) GetByTeacherID(_ context.Context, teacherID int64) (*model.TeacherWallet, error) {
	w, ok := f.db.wallets[teacherID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (f fakeWallets) GetForUpdate(ctx context.Context, teacherID int64) (*model.TeacherWallet, error) {
	return f.GetByTeacherID(ctx, teacherID)
}

func (f fakeWallets) update(walletID int64, guard func(w model.TeacherWallet) bool, apply func(w *model.TeacherWallet)) *model.TeacherWallet {
	w, ok := f.byID(walletID)
	if !ok || !guard(w) {
		return nil
	}
	apply(&w)
	f.db.wallets[w.TeacherID] = w
	return &w
}

func always(model.TeacherWallet) bool { return true }

func (f fakeWallets) Credit(_ context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	return f.update(walletID, always, func(w *model.TeacherWallet) {
		w.Balance = w.Balance.Add(amount)
		w.TotalEarned = w.TotalEarned.Add(amount)
	}), nil
}

func (f fakeWallets) Reserve(_ context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	return f.update(walletID,
		func(w model.TeacherWallet) bool { return w.Balance.GreaterThanOrEqual(amount) },
		func(w *model.TeacherWallet) {
			w.Balance = w.Balance.Sub(amount)
			w.PendingBalance = w.PendingBalance.Add(amount)
		}), nil
}

func (f fakeWallets) Release(_ context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	return f.update(walletID,
		func(w model.TeacherWallet) bool { return w.PendingBalance.GreaterThanOrEqual(amount) },
		func(w *model.TeacherWallet) {
			w.Balance = w.Balance.Add(amount)
			w.PendingBalance = w.PendingBalance.Sub(amount)
		}), nil
}

func (f fakeWallets) Settle(_ context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	return f.update(walletID,
		func(w model.TeacherWallet) bool { return w.PendingBalance.GreaterThanOrEqual(amount) },
		func(w *model.TeacherWallet) {
			w.PendingBalance = w.PendingBalance.Sub(amount)
		}), nil
}

func (f fakeWallets) AppendTransaction(_ context.Context, txn *model.WalletTransaction) error {
	if err := f.db.fail("wallets.AppendTransaction"); err != nil {
		return err
	}
	txn.ID = f.db.nextID()
	f.db.txns = append(f.db.txns, *txn)
	return nil
}

func (f fakeWallets) ListTransactions(_ context.Context, walletID int64, limit, offset int) ([]*model.WalletTransaction, error) {
	result := make([]*model.WalletTransaction, 0)
	for i := len(f.db.txns) - 1; i >= 0; i-- {
		if f.db.txns[i].WalletID == walletID {
			txn := f.db.txns[i]
			result = append(result, &txn)
		}
	}
	if offset >= len(result) {
		return []*model.WalletTransaction{}, nil
	}
	return result[offset:min(len(result), offset+limit)], nil
}

func (f fakeWallets) LedgerTotals(_ context.Context, walletID int64) (*model.LedgerTotals, error) {
	totals := &model.LedgerTotals{}
	for _, txn := range f.db.txns {
		if txn.WalletID != walletID {
			continue
		}
		switch txn.Type {
		case model.TransactionTypeCredit:
			totals.Credits = totals.Credits.Add(txn.Amount)
			if txn.PayoutID == nil {
				totals.EarnedCredits = totals.EarnedCredits.Add(txn.Amount)
			}
		case model.TransactionTypeDebit:
			totals.Debits = totals.Debits.Add(txn.Amount)
		}
	}
	return totals, nil
}

type fakeRevenues struct{ db *memDB }

func (f fakeRevenues) Append(_ context.Context, revenue *model.PlatformRevenue) error {
	for _, r := range f.db.revenues {
		if r.BookingID == revenue.BookingID {
			return fmt.Errorf("append platform revenue: %w", repository.ErrDuplicate)
		}
	}
	revenue.ID = f.db.nextID()
	f.db.revenues = append(f.db.revenues, *revenue)
	return nil
}

func (f fakeRevenues) Totals(_ context.Context) (*model.RevenueTotals, error) {
	totals := &model.RevenueTotals{}
	for _, r := range f.db.revenues {
		totals.Bookings++
		totals.GrossAmount = totals.GrossAmount.Add(r.GrossAmount)
		totals.PlatformFee = totals.PlatformFee.Add(r.PlatformFee)
		totals.TeacherEarning = totals.TeacherEarning.Add(r.TeacherEarning)
	}
	return totals, nil
}

type fakePayouts struct{ db *memDB }

func (f fakePayouts) Create(ctx context.Context, payout *model.PayoutRequest) error {
	if pending, _ := f.HasPending(ctx, payout.TeacherID); pending {
		return fmt.Errorf("create payout request: %w", repository.ErrDuplicate)
	}
	payout.ID = f.db.nextID()
	f.db.payouts[payout.ID] = *payout
	return nil
}

func (f fakePayouts) GetByID(_ context.Context, id int64) (*model.PayoutRequest, error) {
	p, ok := f.db.payouts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f fakePayouts) HasPending(_ context.Context, teacherID int64) (bool, error) {
	for _, p := range f.db.payouts {
		if p.TeacherID == teacherID && p.Status == model.PayoutStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f fakePayouts) OpenAmount(_ context.Context, teacherID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range f.db.payouts {
		if p.TeacherID == teacherID && (p.Status == model.PayoutStatusPending || p.Status == model.PayoutStatusApproved) {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f fakePayouts) list(match func(p model.PayoutRequest) bool) []*model.PayoutRequest {
	result := make([]*model.PayoutRequest, 0)
	for _, p := range f.db.payouts {
		if match(p) {
			result = append(result, &p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

func (f fakePayouts) ListByTeacher(_ context.Context, teacherID int64) ([]*model.PayoutRequest, error) {
	return f.list(func(p model.PayoutRequest) bool { return p.TeacherID == teacherID }), nil
}

func (f fakePayouts) ListByStatus(_ context.Context, status model.PayoutStatus) ([]*model.PayoutRequest, error) {
	return f.list(func(p model.PayoutRequest) bool { return p.Status == status }), nil
}

func (f fakePayouts) transition(id int64, from, to model.PayoutStatus, apply func(p *model.PayoutRequest)) *model.PayoutRequest {
	p, ok := f.db.payouts[id]
	if !ok || p.Status != from {
		return nil
	}
	p.Status = to
	apply(&p)
	f.db.payouts[id] = p
	return &p
}

func (f fakePayouts) Approve(_ context.Context, id, adminID int64, at time.Time) (*model.PayoutRequest, error) {
	return f.transition(id, model.PayoutStatusPending, model.PayoutStatusApproved, func(p *model.PayoutRequest) {
		p.ApprovedAt = &at
		p.ApprovedBy = &adminID
	}), nil
}

func (f fakePayouts) Reject(_ context.Context, id, adminID int64, reason string, at time.Time) (*model.PayoutRequest, error) {
	return f.transition(id, model.PayoutStatusPending, model.PayoutStatusRejected, func(p *model.PayoutRequest) {
		p.ApprovedBy = &adminID
		p.RejectionReason = &reason
		p.ProcessedAt = &at
	}), nil
}

func (f fakePayouts) Complete(_ context.Context, id int64, at time.Time) (*model.PayoutRequest, error) {
	return f.transition(id, model.PayoutStatusApproved, model.PayoutStatusCompleted, func(p *model.PayoutRequest) {
		p.ProcessedAt = &at
	}), nil
}

type sentNotification struct {
	UserID int64
	Kind   model.NotificationKind
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, notification model.Notification) error {
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: notification.Kind})
	return n.err
}

func (n *fakeNotifier) recipients(kind model.NotificationKind) []int64 {
	var users []int64
	for _, s := range n.sent {
		if s.Kind == kind {
			users = append(users, s.UserID)
		}
	}
	return users
}

// Участники тестов
const (
	studentUserID  int64 = 1
	teacherUserID  int64 = 100
	strangerUserID int64 = 555
	adminUserID    int64 = 900
	teacherID      int64 = 10
)

// 2026-03-04 среда, 10:00 UTC
var testNow = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *memDB
	notifier   *fakeNotifier
	bookings   *BookingService
	payments   *PaymentService
	wallet     *WalletService
	recurring  *RecurringService
	automation *AutomationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	db.seq = 1000
	db.teachers[teacherID] = model.Teacher{
		ID:         teacherID,
		UserID:     teacherUserID,
		HourlyRate: decimal.NewFromInt(50),
		IsApproved: true,
	}

	tx := &fakeTx{db: db}
	notifier := &fakeNotifier{}
	logger := zap.NewNop()
	clock := func() time.Time { return testNow }

	bookings := NewBookingService(tx, fakeBookings{db}, fakeSessions{db}, fakePayments{db}, fakeTeachers{db}, notifier, time.UTC, logger)
	bookings.now = clock

	wallet := NewWalletService(tx, fakeWallets{db}, fakePayouts{db}, fakeRevenues{db}, fakeTeachers{db}, notifier, decimal.NewFromInt(20), logger)
	wallet.now = clock

	payments := NewPaymentService(tx, fakeBookings{db}, fakePayments{db}, fakeTeachers{db}, wallet, notifier, "EGP", logger)
	payments.now = clock

	recurring := NewRecurringService(tx, fakeBookings{db}, fakeSchedules{db}, fakeTeachers{db}, notifier, time.UTC, logger)
	recurring.now = clock

	automation := NewAutomationService(tx, fakeBookings{db}, fakeSessions{db}, fakeTeachers{db}, notifier, logger)

	return &testEnv{
		db:         db,
		notifier:   notifier,
		bookings:   bookings,
		payments:   payments,
		wallet:     wallet,
		recurring:  recurring,
		automation: automation,
	}
}

// seedBooking кладёт бронирование напрямую в хранилище
func (e *testEnv) seedBooking(status model.BookingStatus, startsAt time.Time) *model.Booking {
	b := model.Booking{
		ID:         e.db.nextID(),
		StudentID:  studentUserID,
		TeacherID:  teacherID,
		Date:       model.CalendarDate(startsAt),
		StartTime:  startsAt.Format("15:04"),
		StartsAt:   startsAt,
		Duration:   decimal.NewFromInt(1),
		Price:      decimal.NewFromInt(50),
		Discount:   decimal.Zero,
		TotalPrice: decimal.NewFromInt(50),
		Status:     status,
	}
	e.db.bookings[b.ID] = b
	return &b
}

func (e *testEnv) seedPayment(bookingID int64, status model.PaymentStatus, amount decimal.Decimal) *model.Payment {
	p := model.Payment{
		ID:        e.db.nextID(),
		BookingID: bookingID,
		Amount:    amount,
		Currency:  "EGP",
		Status:    status,
	}
	e.db.payments[bookingID] = p
	return &p
}

func (e *testEnv) seedSession(bookingID int64, startedAt time.Time) *model.Session {
	s := model.Session{
		ID:        e.db.nextID(),
		BookingID: bookingID,
		RoomID:    "room-seeded",
		StartedAt: startedAt,
	}
	e.db.sessions[bookingID] = s
	return &s
}

func (e *testEnv) booking(id int64) model.Booking {
	return e.db.bookings[id]
}

func (e *testEnv) walletOf(teacherID int64) model.TeacherWallet {
	return e.db.wallets[teacherID]
}
