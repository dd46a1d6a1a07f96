// Package batch drives a full monthly accrual run: it queries the set of
// candidate contracts (spec.md §4.7 "candidate filter"), then iterates
// them sequentially through the Contract Accrual Processor, isolating any
// one contract's failure from the rest (spec.md §4.7.9), in the same
// shape as the teacher's subscriptionService.UpdateBillingPeriods cron
// job: paginate, process one at a time, accumulate counters and a result
// list.
package batch

import (
	"context"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/accrualengine"
	"github.com/fourgeeks/accrual-engine/internal/calendar"
	"github.com/fourgeeks/accrual-engine/internal/config"
	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/domain/accruedperiod"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/fourgeeks/accrual-engine/internal/sentry"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/samber/lo"
)

// defaultPageSize mirrors the teacher's subscription batch cron's page
// size, used when config.BatchConfig.PageSize is unset.
const defaultPageSize = 100

// Summary reports the batch-level counters spec.md §4.7.9 and §6 require.
type Summary struct {
	TotalProcessed int
	Successful     int
	Failed         int
	Skipped        int
}

// Report is the result of one process_contracts invocation (spec.md §6).
type Report struct {
	PeriodStartDate   time.Time
	Summary           Summary
	ProcessingResults []accrualengine.Result
	Notifications     []types.Notification
}

// Driver queries candidate contracts and runs the core processor over
// each, sequentially, isolating per-contract failures.
type Driver struct {
	contracts contract.Repository
	periods   period.Repository
	accruals  accrual.Repository
	accrueds  accruedperiod.Repository
	processor *accrualengine.Processor
	sentry    *sentry.Service
	log       *logger.Logger

	pageSize         int
	recentCutoffYear int
}

// NewDriver builds a Driver over its repository and processor dependencies.
// cfg tunes the candidate scan's page size and lets operators pin the
// "recent contract" cutoff year (spec.md SS4.7, SS9 decision 3); a zero
// PageSize falls back to defaultPageSize.
func NewDriver(
	contracts contract.Repository,
	periods period.Repository,
	accruals accrual.Repository,
	accrueds accruedperiod.Repository,
	processor *accrualengine.Processor,
	sentrySvc *sentry.Service,
	log *logger.Logger,
	cfg config.BatchConfig,
) *Driver {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Driver{
		contracts:        contracts,
		periods:          periods,
		accruals:         accruals,
		accrueds:         accrueds,
		processor:        processor,
		sentry:           sentrySvc,
		log:              log,
		pageSize:         pageSize,
		recentCutoffYear: cfg.RecentContractCutoffOverrideYear,
	}
}

// Run processes every candidate contract for periodStartDate's month and
// returns the batch report (spec.md §6 process_contracts).
func (d *Driver) Run(ctx context.Context, periodStartDate time.Time) (*Report, error) {
	monthStart, monthEnd := calendar.MonthBounds(periodStartDate)

	report := &Report{PeriodStartDate: monthStart}

	offset := 0
	for {
		page, err := d.contracts.ListCandidates(ctx, contract.CandidateFilter{
			TargetMonthEnd: monthEnd,
			QueryFilter:    types.QueryFilter{Limit: d.pageSize, Offset: offset},
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, c := range page {
			keep, err := d.keepCandidate(ctx, c, monthStart, monthEnd)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
			d.processOne(ctx, c, monthStart, report)
		}

		offset += len(page)
		if len(page) < d.pageSize {
			break
		}
	}

	return report, nil
}

// processOne runs the core processor for one contract, isolated from the
// rest of the batch by sentry.RecoverAndReport: a panic or returned error
// becomes a FAILED result rather than aborting the run (spec.md §4.7.9).
func (d *Driver) processOne(ctx context.Context, c *contract.Contract, targetMonth time.Time, report *Report) {
	var res accrualengine.Result
	var notes []types.Notification

	runErr := d.sentry.RecoverAndReport(c.ID, func() error {
		var procErr error
		res, notes, procErr = d.processor.Process(ctx, c, targetMonth)
		return procErr
	})

	report.Notifications = append(report.Notifications, notes...)
	report.Summary.TotalProcessed++

	if runErr != nil {
		if d.log != nil {
			d.log.Errorw("contract processing failed", "contract_id", c.ID, "error", runErr)
		}
		report.Summary.Failed++
		report.ProcessingResults = append(report.ProcessingResults, accrualengine.Result{
			ContractID: c.ID,
			Status:     accrualengine.ResultFailed,
			Message:    runErr.Error(),
		})
		return
	}

	switch res.Status {
	case accrualengine.ResultSuccess:
		report.Summary.Successful++
	case accrualengine.ResultSkipped:
		report.Summary.Skipped++
	case accrualengine.ResultFailed:
		report.Summary.Failed++
	}
	report.ProcessingResults = append(report.ProcessingResults, res)
}

// keepCandidate re-applies the parts of the candidate filter (spec.md
// §4.7) that need the contract's periods or aggregate loaded — the parts
// ListCandidates cannot push down to SQL on its own.
func (d *Driver) keepCandidate(ctx context.Context, c *contract.Contract, monthStart, monthEnd time.Time) (bool, error) {
	if c.ContractDate.After(monthEnd) {
		return false, nil
	}

	if c.Status == types.ContractStatusClosed || c.Status == types.ContractStatusCanceled {
		agg, err := d.accruals.GetByContract(ctx, c.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return true, nil
			}
			return false, err
		}
		if agg.IsCompleted() {
			if c.IsZeroAmount() {
				rows, err := d.accrueds.ListByAccrual(ctx, agg.ID)
				if err != nil {
					return false, err
				}
				if len(rows) == 0 {
					return true, nil
				}
			}
			return false, nil
		}
	}

	if c.Status == types.ContractStatusActive {
		periods, err := d.periods.ListByContract(ctx, c.ID)
		if err != nil {
			return false, err
		}
		if len(periods) > 0 {
			overlapsMonth := lo.SomeBy(periods, func(p *period.Period) bool {
				return p.Overlaps(monthStart, monthEnd)
			})
			if !overlapsMonth && !d.isRecentContractYear(c, monthEnd) {
				return false, nil
			}
		}
	}

	return true, nil
}

// isRecentContractYear implements the candidate filter's "recent"
// carve-out for ACTIVE contracts with non-overlapping periods: the
// contract's own year must not be older than the target month's year
// (spec.md §4.7, §9 decision 3 — compared against month_end, never wall
// clock). An operator-pinned cutoff year overrides month_end's year when
// configured.
func (d *Driver) isRecentContractYear(c *contract.Contract, monthEnd time.Time) bool {
	cutoff := monthEnd.Year()
	if d.recentCutoffYear > 0 {
		cutoff = d.recentCutoffYear
	}
	return c.ContractDate.Year() >= cutoff
}
