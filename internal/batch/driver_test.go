package batch

import (
	"context"
	"testing"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/accrualengine"
	"github.com/fourgeeks/accrual-engine/internal/aggregate"
	"github.com/fourgeeks/accrual-engine/internal/config"
	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/lms"
	"github.com/fourgeeks/accrual-engine/internal/testutil"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeLMSClient struct{}

func (fakeLMSClient) FetchByExternalID(ctx context.Context, externalID string) (*lms.Record, error) {
	return nil, nil
}

func (fakeLMSClient) FetchByEmail(ctx context.Context, email string) (*lms.Record, error) {
	return nil, nil
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func newDriver() (*Driver, *testutil.ContractRepository, *testutil.PeriodRepository, *testutil.AccrualRepository, *testutil.AccruedPeriodRepository, *testutil.ClientRepository) {
	contracts := testutil.NewContractRepository()
	periods := testutil.NewPeriodRepository()
	clients := testutil.NewClientRepository()
	invoices := testutil.NewInvoiceRepository()
	accruals := testutil.NewAccrualRepository()
	accrueds := testutil.NewAccruedPeriodRepository()

	mutator := aggregate.NewMutator(accruals, accrueds, contracts, testutil.Transactor{}, nil)
	reconciler := lms.NewReconciler(fakeLMSClient{}, nil)
	proc := accrualengine.NewProcessor(contracts, periods, clients, invoices, accrueds, mutator, reconciler, nil)

	driver := NewDriver(contracts, periods, accruals, accrueds, proc, nil, nil, config.BatchConfig{})
	return driver, contracts, periods, accruals, accrueds, clients
}

func baseContract(id string, amount decimal.Decimal, status types.ContractStatus, contractDate time.Time) *contract.Contract {
	return &contract.Contract{
		ID:             id,
		ClientRef:      id + "-client",
		ContractDate:   contractDate,
		ContractAmount: amount,
		Status:         status,
		Service:        contract.ServiceSpec{TotalSessions: 120, SessionsPerWeek: 6},
	}
}

func TestRunProcessesActiveContractWithOverlappingPeriod(t *testing.T) {
	driver, contracts, periods, _, _, _ := newDriver()

	c := baseContract("c1", decimal.NewFromInt(4800), types.ContractStatusActive, d(2024, 1, 10))
	contracts.Put(c)
	periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusActive,
		StartDate: d(2024, 1, 10), EndDate: d(2024, 12, 31),
	})

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 1, report.Summary.TotalProcessed)
	require.Equal(t, 1, report.Summary.Successful)
	require.Len(t, report.ProcessingResults, 1)
	require.Equal(t, accrualengine.ResultSuccess, report.ProcessingResults[0].Status)
}

func TestRunExcludesContractDatedAfterMonthEnd(t *testing.T) {
	driver, contracts, _, _, _, _ := newDriver()

	c := baseContract("c1", decimal.NewFromInt(1000), types.ContractStatusActive, d(2024, 3, 5))
	contracts.Put(c)

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 0, report.Summary.TotalProcessed)
	require.Empty(t, report.ProcessingResults)
}

func TestRunExcludesCompletedClosedContractWithNonZeroAmount(t *testing.T) {
	driver, contracts, _, accruals, _, _ := newDriver()

	c := baseContract("c1", decimal.NewFromInt(1000), types.ContractStatusClosed, d(2023, 1, 10))
	contracts.Put(c)

	agg := accrual.New(c.ID, c.ContractAmount, c.Service.TotalSessions)
	agg.ID = "acc1"
	agg.TotalAmountAccrued = c.ContractAmount
	agg.RemainingAmountToAccrue = decimal.Zero
	agg.AccrualStatus = types.AccrualStatusCompleted
	require.NoError(t, accruals.Create(context.Background(), agg))

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 0, report.Summary.TotalProcessed)
}

func TestRunKeepsCompletedClosedZeroAmountContractMissingAuditRow(t *testing.T) {
	driver, contracts, _, accruals, accrueds, _ := newDriver()

	c := baseContract("c1", decimal.Zero, types.ContractStatusClosed, d(2023, 1, 10))
	contracts.Put(c)

	agg := accrual.New(c.ID, c.ContractAmount, c.Service.TotalSessions)
	agg.ID = "acc1"
	agg.AccrualStatus = types.AccrualStatusCompleted
	require.NoError(t, accruals.Create(context.Background(), agg))

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 1, report.Summary.TotalProcessed)
	require.Equal(t, 1, report.Summary.Successful)

	rows, err := accrueds.ListByAccrual(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRunExcludesActiveContractWithNonOverlappingOldPeriodNotRecent(t *testing.T) {
	driver, contracts, periods, _, _, _ := newDriver()

	c := baseContract("c1", decimal.NewFromInt(1000), types.ContractStatusActive, d(2022, 1, 10))
	contracts.Put(c)
	periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusEnded,
		StartDate: d(2022, 1, 10), EndDate: d(2022, 6, 30),
	})

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 0, report.Summary.TotalProcessed)
}

func TestRunKeepsActiveContractWithNonOverlappingPeriodWhenRecentByYear(t *testing.T) {
	driver, contracts, periods, _, _, _ := newDriver()

	c := baseContract("c1", decimal.NewFromInt(1000), types.ContractStatusActive, d(2024, 1, 10))
	contracts.Put(c)
	periods.Put(&period.Period{
		ID: "p1", ContractID: c.ID, Status: types.PeriodStatusDropped,
		StartDate: d(2024, 1, 10), EndDate: d(2024, 1, 20),
		StatusChangeDate: func() *time.Time { t := d(2024, 1, 20); return &t }(),
	})

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 1, report.Summary.TotalProcessed)
}

func TestRunIsolatesOneContractFailureWithoutAbortingBatch(t *testing.T) {
	driver, contracts, _, _, _, clients := newDriver()

	// c1 has no periods and no linked client record: noPeriods's client
	// lookup returns a store error, which must surface as a FAILED result
	// rather than aborting the run.
	c1 := baseContract("c1", decimal.NewFromInt(1000), types.ContractStatusActive, d(2024, 1, 10))
	contracts.Put(c1)

	// c2 is otherwise identical but has a resolvable (if LMS-less) client,
	// so it reaches a normal skip/resign result instead of erroring.
	c2 := baseContract("c2", decimal.NewFromInt(1000), types.ContractStatusActive, d(2024, 2, 20))
	contracts.Put(c2)
	clients.Put(&client.Client{ID: c2.ClientRef, Email: "c2@example.com"})

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 2, report.Summary.TotalProcessed)
	require.Equal(t, 1, report.Summary.Failed)
	require.Equal(t, 1, report.Summary.Skipped)

	byID := map[string]accrualengine.Result{}
	for _, res := range report.ProcessingResults {
		byID[res.ContractID] = res
	}
	require.Equal(t, accrualengine.ResultFailed, byID["c1"].Status)
	require.Equal(t, accrualengine.ResultSkipped, byID["c2"].Status)
}

func TestRunPaginatesAcrossMultiplePages(t *testing.T) {
	driver, contracts, periods, _, _, _ := newDriver()

	for i := 0; i < defaultPageSize+5; i++ {
		id := "c" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		c := baseContract(id, decimal.NewFromInt(1000), types.ContractStatusActive, d(2024, 1, 10))
		contracts.Put(c)
		periods.Put(&period.Period{
			ID: id + "-p", ContractID: c.ID, Status: types.PeriodStatusActive,
			StartDate: d(2024, 1, 10), EndDate: d(2024, 12, 31),
		})
	}

	report, err := driver.Run(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, defaultPageSize+5, report.Summary.TotalProcessed)
}
