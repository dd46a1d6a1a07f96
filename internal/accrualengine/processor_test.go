package accrualengine

import (
	"context"
	"testing"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/aggregate"
	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/invoice"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/lms"
	"github.com/fourgeeks/accrual-engine/internal/testutil"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeLMSClient struct {
	byExternalID map[string]*lms.Record
	byEmail      map[string]*lms.Record
}

func (f *fakeLMSClient) FetchByExternalID(ctx context.Context, externalID string) (*lms.Record, error) {
	return f.byExternalID[externalID], nil
}

func (f *fakeLMSClient) FetchByEmail(ctx context.Context, email string) (*lms.Record, error) {
	return f.byEmail[email], nil
}

type harness struct {
	proc      *Processor
	contracts *testutil.ContractRepository
	periods   *testutil.PeriodRepository
	clients   *testutil.ClientRepository
	invoices  *testutil.InvoiceRepository
	accruals  *testutil.AccrualRepository
	accrueds  *testutil.AccruedPeriodRepository
	lmsClient *fakeLMSClient
}

func newHarness() *harness {
	contracts := testutil.NewContractRepository()
	periods := testutil.NewPeriodRepository()
	clients := testutil.NewClientRepository()
	invoices := testutil.NewInvoiceRepository()
	accruals := testutil.NewAccrualRepository()
	accrueds := testutil.NewAccruedPeriodRepository()

	mutator := aggregate.NewMutator(accruals, accrueds, contracts, testutil.Transactor{}, nil)
	fc := &fakeLMSClient{byExternalID: map[string]*lms.Record{}, byEmail: map[string]*lms.Record{}}
	reconciler := lms.NewReconciler(fc, nil)

	proc := NewProcessor(contracts, periods, clients, invoices, accrueds, mutator, reconciler, nil)

	return &harness{
		proc:      proc,
		contracts: contracts,
		periods:   periods,
		clients:   clients,
		invoices:  invoices,
		accruals:  accruals,
		accrueds:  accrueds,
		lmsClient: fc,
	}
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func baseContract(id string, amount decimal.Decimal, status types.ContractStatus) *contract.Contract {
	return &contract.Contract{
		ID:             id,
		ClientRef:      id + "-client",
		ContractDate:   d(2023, 1, 10),
		ContractAmount: amount,
		Status:         status,
		Service:        contract.ServiceSpec{TotalSessions: 120, SessionsPerWeek: 6},
	}
}

func TestProcessActiveAccruesMonthlyPortionFromActivePeriod(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusActive,
		StartDate: d(2024, 1, 1), EndDate: d(2024, 12, 31),
	})

	res, notes, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Empty(t, notes)
	require.Equal(t, ResultSuccess, res.Status)
	require.NotNil(t, res.PeriodID)
	require.Equal(t, "p1", *res.PeriodID)
}

func TestProcessActiveCompletedCascadesBySignWithoutAccrual(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)

	agg, err := h.proc.mutator.EnsureAggregate(context.Background(), c)
	require.NoError(t, err)
	agg.AccrualStatus = types.AccrualStatusCompleted

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSkipped, res.Status)
	require.Equal(t, types.ContractStatusClosed, c.Status)
}

func TestProcessActiveZeroRemainingWithPeriodsCompletesWithoutRow(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{ID: "p1", ContractID: c.ID, Status: types.PeriodStatusEnded, StartDate: d(2023, 1, 1), EndDate: d(2023, 12, 31)})

	agg, err := h.proc.mutator.EnsureAggregate(context.Background(), c)
	require.NoError(t, err)
	agg.RemainingAmountToAccrue = decimal.Zero

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSkipped, res.Status)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)
	require.Equal(t, types.ContractStatusClosed, c.Status)

	rows, _ := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.Len(t, rows, 0)
}

func TestProcessActiveNegativeRemainderCancelsContract(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(-500), types.ContractStatusActive)
	h.contracts.Put(c)

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)
}

func TestProcessActiveEndedPeriodClosesAndAccruesFully(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	changeDate := d(2024, 1, 20)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusEnded,
		StartDate: d(2023, 6, 1), EndDate: d(2024, 1, 20), StatusChangeDate: &changeDate,
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 1, 25))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusClosed, c.Status)
}

func TestProcessActiveDroppedPeriodCancelsAndAccruesFully(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	changeDate := d(2024, 2, 5)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusDropped,
		StartDate: d(2023, 6, 1), EndDate: d(2024, 6, 1), StatusChangeDate: &changeDate,
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)
}

func TestProcessActivePostponedWithinMonthAccruesUntilChangeAndPauses(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	changeDate := d(2024, 2, 15)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusPostponed,
		StartDate: d(2024, 1, 1), EndDate: d(2024, 12, 31), StatusChangeDate: &changeDate,
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusPaused, agg.AccrualStatus)
}

func TestProcessActiveNoPeriodsRecentContractSkipsWhenLMSMissing(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	c.ContractDate = d(2024, 2, 20)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})

	res, notes, err := h.proc.Process(context.Background(), c, d(2024, 2, 5))
	require.NoError(t, err)
	require.Equal(t, ResultSkipped, res.Status)
	require.Len(t, notes, 1)
	require.Equal(t, types.NotificationTypeNotCongruentStatus, notes[0].Type)
	require.Equal(t, types.ContractStatusActive, c.Status)
}

func TestProcessActiveNoPeriodsResignsWhenLMSMissingAndNotRecent(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	c.ContractDate = d(2023, 1, 1)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 29))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)
}

func TestProcessActiveNoPeriodsDroppedInLMSResigns(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})
	dropDate := d(2024, 2, 5)
	h.lmsClient.byEmail["student@example.com"] = &lms.Record{EducationalStatus: "Dropped", StatusChangeDate: &dropDate}

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)
}

func TestProcessActiveNoPeriodsEndedInLMSNonZeroClosesContract(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})
	endDate := d(2024, 2, 5)
	h.lmsClient.byEmail["student@example.com"] = &lms.Record{EducationalStatus: "Graduated", StatusChangeDate: &endDate}

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusClosed, c.Status)
}

func TestProcessActiveNoPeriodsEndedInLMSZeroAmountWritesAuditRow(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.Zero, types.ContractStatusActive)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})
	endDate := d(2024, 2, 5)
	h.lmsClient.byEmail["student@example.com"] = &lms.Record{EducationalStatus: "Graduated", StatusChangeDate: &endDate}

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].AccruedAmount.IsZero())
}

func TestProcessActiveNoPeriodsPreferLastCreditNoteMonthForZeroAmount(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.Zero, types.ContractStatusActive)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})
	endDate := d(2024, 2, 5)
	h.lmsClient.byEmail["student@example.com"] = &lms.Record{EducationalStatus: "Graduated", StatusChangeDate: &endDate}
	h.invoices.Put(c.ID, &invoice.Invoice{ID: "inv1", ContractID: c.ID, InvoiceDate: d(2023, 11, 5), TotalAmount: decimal.NewFromInt(-100), InvoiceNumber: "CN-1"})

	_, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].AccrualDate.Equal(d(2023, 11, 1)))
}

func TestProcessCanceledWithIncongruentPeriodNotifiesAndSkips(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusCanceled)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{ID: "p1", ContractID: c.ID, Status: types.PeriodStatusActive, StartDate: d(2024, 1, 1), EndDate: d(2024, 12, 31)})

	res, notes, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSkipped, res.Status)
	require.Len(t, notes, 1)
	require.Equal(t, types.NotificationTypeNotCongruentStatus, notes[0].Type)
}

func TestProcessCanceledWithDroppedPeriodAccruesFully(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusCanceled)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{ID: "p1", ContractID: c.ID, Status: types.PeriodStatusDropped, StartDate: d(2023, 1, 1), EndDate: d(2023, 12, 31)})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)
}

func TestProcessClosedWithIncompleteAccrualRoutesLikeActive(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusClosed)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusActive,
		StartDate: d(2024, 1, 1), EndDate: d(2024, 12, 31),
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
}

func TestProcessClosedAlreadyCompletedSkips(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusClosed)
	h.contracts.Put(c)
	agg, err := h.proc.mutator.EnsureAggregate(context.Background(), c)
	require.NoError(t, err)
	agg.AccrualStatus = types.AccrualStatusCompleted

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSkipped, res.Status)
}

// The following tests pin the concrete input/output pairs from spec.md
// §8's worked scenarios: not just the resulting status transition, but
// the actual accrued amount, accrual portion and session count the
// engine derives from the allocator and the mutator's arithmetic.

// Scenario 1: simple active full month.
func TestScenarioSimpleActiveFullMonthAccruesExactPortion(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusActive,
		StartDate: d(2024, 1, 1), EndDate: d(2024, 4, 30),
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// allocator: 121 period days, 29 overlap days in February (leap
	// year) => 25 of a 104-session period-wide cap; portion is against
	// the contract's 120 total sessions, not the period cap.
	require.Equal(t, 25, rows[0].SessionsInPeriod)
	portion, _ := rows[0].AccrualPortion.Float64()
	require.InDelta(t, 25.0/120.0, portion, 1e-9)
	require.True(t, rows[0].AccruedAmount.Equal(decimal.NewFromInt(1000)),
		"accrued_amount = %s", rows[0].AccruedAmount)

	require.True(t, agg.RemainingAmountToAccrue.Equal(decimal.NewFromInt(3800)))
	require.Equal(t, 95, agg.SessionsRemainingToAccrue)
}

// Scenario 2: postponed mid-month.
func TestScenarioPostponedMidMonthAccruesUntilChangeDateAndPauses(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	changeDate := d(2025, 1, 15)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusPostponed,
		StartDate: d(2024, 12, 1), EndDate: d(2025, 4, 30), StatusChangeDate: &changeDate,
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2025, 1, 1))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusPaused, agg.AccrualStatus)

	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 151 period days give a period-wide cap equal to the 120-session
	// total, so the 15-day overlap ([Jan 1, Jan 15]) maps to 12 of 120
	// sessions directly.
	require.Equal(t, 12, rows[0].SessionsInPeriod)
	portion, _ := rows[0].AccrualPortion.Float64()
	require.InDelta(t, 0.1, portion, 1e-9)
	require.True(t, rows[0].AccruedAmount.Equal(decimal.NewFromInt(480)),
		"accrued_amount = %s", rows[0].AccruedAmount)
}

// Scenario 3: dropped period accrues the full remainder.
func TestScenarioDroppedPeriodAccruesFullRemainderAndCompletes(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	h.contracts.Put(c)
	changeDate := d(2025, 1, 10)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusDropped,
		StartDate: d(2024, 12, 1), EndDate: d(2025, 4, 30), StatusChangeDate: &changeDate,
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2025, 1, 1))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)
	require.True(t, agg.RemainingAmountToAccrue.IsZero())

	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].AccruedAmount.Equal(decimal.NewFromInt(4800)))
	require.True(t, rows[0].AccrualPortion.Equal(decimal.NewFromInt(1)))
	require.Equal(t, 120, rows[0].SessionsInPeriod)
}

// Scenario 4: ended resignation via LMS, no service period.
func TestScenarioEndedResignationViaLMSAccruesFullRemainderAndCloses(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(1000), types.ContractStatusActive)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})
	changeDate := d(2024, 3, 12)
	h.lmsClient.byEmail["student@example.com"] = &lms.Record{EducationalStatus: "Graduated", StatusChangeDate: &changeDate}

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 3, 1))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusClosed, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)

	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].AccruedAmount.Equal(decimal.NewFromInt(1000)))
	require.True(t, rows[0].AccrualPortion.Equal(decimal.NewFromInt(1)))
}

// Scenario 5: zero-amount resignation, accrual date from the last credit
// note rather than the target month.
func TestScenarioZeroAmountResignationWritesAuditRowAtCreditNoteMonth(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.Zero, types.ContractStatusActive)
	c.ContractDate = d(2024, 1, 5)
	h.contracts.Put(c)
	h.clients.Put(&client.Client{ID: c.ClientRef, Email: "student@example.com"})
	h.invoices.Put(c.ID, &invoice.Invoice{
		ID: "cn1", ContractID: c.ID, InvoiceDate: d(2024, 3, 20),
		TotalAmount: decimal.NewFromInt(-50), InvoiceNumber: "CN-1",
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 4, 1))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusCanceled, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)

	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].AccruedAmount.IsZero())
	require.True(t, rows[0].AccrualDate.Equal(d(2024, 3, 1)))
}

// Scenario 6: invoice-based late billing accrues the full remainder long
// after the last service period ended.
func TestScenarioInvoiceBasedLateBillingAccruesFullRemainderAndCloses(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(210), types.ContractStatusActive)
	c.ContractDate = d(2024, 6, 29)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusEnded,
		StartDate: d(2022, 1, 1), EndDate: d(2022, 12, 31),
	})
	h.invoices.Put(c.ID, &invoice.Invoice{
		ID: "inv1", ContractID: c.ID, InvoiceDate: d(2024, 6, 15),
		TotalAmount: decimal.NewFromInt(210), InvoiceNumber: "INV-1",
	})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 6, 1))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusClosed, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)

	rows, err := h.accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].AccruedAmount.Equal(decimal.NewFromInt(210)))
	require.True(t, rows[0].AccrualPortion.Equal(decimal.NewFromInt(1)))
}

func TestProcessActiveInvoiceBasedOverrideAccruesFullyAndCloses(t *testing.T) {
	h := newHarness()
	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive)
	c.ContractDate = d(2024, 2, 15)
	h.contracts.Put(c)
	h.periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusEnded,
		StartDate: d(2023, 1, 1), EndDate: d(2023, 6, 1),
	})
	h.invoices.Put(c.ID, &invoice.Invoice{ID: "inv1", ContractID: c.ID, InvoiceDate: d(2024, 2, 1), TotalAmount: decimal.NewFromInt(4800), InvoiceNumber: "INV-1"})

	res, _, err := h.proc.Process(context.Background(), c, d(2024, 2, 10))
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Status)
	require.Equal(t, types.ContractStatusClosed, c.Status)

	agg, err := h.accruals.GetByContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, types.AccrualStatusCompleted, agg.AccrualStatus)
}
