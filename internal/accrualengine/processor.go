// Package accrualengine implements the Contract Accrual Processor: the
// decision tree that, given one contract and a target month, decides how
// much of the contract's value to recognize this month and drives the
// contract and its aggregate through their lifecycles (spec.md SS4.7).
package accrualengine

import (
	"context"
	"fmt"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/aggregate"
	"github.com/fourgeeks/accrual-engine/internal/allocator"
	"github.com/fourgeeks/accrual-engine/internal/arbiter"
	"github.com/fourgeeks/accrual-engine/internal/calendar"
	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/domain/accruedperiod"
	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/invoice"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/lms"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

// ResultStatus is the outcome of processing one contract.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultSkipped ResultStatus = "SKIPPED"
	ResultFailed  ResultStatus = "FAILED"
)

// Result reports the outcome of Process for one contract.
type Result struct {
	ContractID string
	PeriodID   *string
	Status     ResultStatus
	Message    string
}

// recentContractWindowDays is the number of days before month_end within
// which a contract is still "recent" enough that a missing or incongruent
// CRM/LMS profile is treated as not-yet-synced rather than a resignation
// (spec.md SS4.7.4).
const recentContractWindowDays = 15

// invoiceOverrideGapMonths is the minimum calendar-month gap between a
// contract's last service period ending and its contract date for the
// invoice-based-override accrual to apply (spec.md SS4.7.2).
const invoiceOverrideGapMonths = 6

// Processor wires the period repository, client/invoice read access, the
// LMS reconciler and the aggregate mutator into the dispatch tree spec.md
// SS4.7 describes.
type Processor struct {
	contracts contract.Repository
	periods   period.Repository
	clients   client.Repository
	invoices  invoice.Repository
	accrueds  accruedperiod.Repository
	mutator   *aggregate.Mutator
	reconciler *lms.Reconciler
	log       *logger.Logger
}

// NewProcessor builds a Processor over its repository and service
// dependencies.
func NewProcessor(
	contracts contract.Repository,
	periods period.Repository,
	clients client.Repository,
	invoices invoice.Repository,
	accrueds accruedperiod.Repository,
	mutator *aggregate.Mutator,
	reconciler *lms.Reconciler,
	log *logger.Logger,
) *Processor {
	return &Processor{
		contracts:  contracts,
		periods:    periods,
		clients:    clients,
		invoices:   invoices,
		accrueds:   accrueds,
		mutator:    mutator,
		reconciler: reconciler,
		log:        log,
	}
}

// notifier accumulates the batch-scoped notifications one Process call may
// raise (spec.md SS4.7.8).
type notifier struct {
	notifications []types.Notification
}

func (n *notifier) add(contractID, message string) {
	n.notifications = append(n.notifications, types.Notification{
		Type:       types.NotificationTypeNotCongruentStatus,
		Message:    message,
		Timestamp:  time.Now().UTC(),
		ContractID: contractID,
	})
}

// Process decides and applies this month's accrual for one contract
// (spec.md SS4.7 "public operation").
func (p *Processor) Process(ctx context.Context, c *contract.Contract, targetMonth time.Time) (Result, []types.Notification, error) {
	monthStart, monthEnd := calendar.MonthBounds(targetMonth)

	periods, err := p.periods.ListByContract(ctx, c.ID)
	if err != nil {
		return Result{}, nil, err
	}

	agg, err := p.mutator.EnsureAggregate(ctx, c)
	if err != nil {
		return Result{}, nil, err
	}

	n := &notifier{}

	var res Result
	switch c.Status {
	case types.ContractStatusActive:
		res, err = p.processActive(ctx, c, agg, periods, monthStart, monthEnd, n)
	case types.ContractStatusCanceled:
		res, err = p.processCanceled(ctx, c, agg, periods, monthStart, monthEnd, n)
	case types.ContractStatusClosed:
		res, err = p.processClosed(ctx, c, agg, periods, monthStart, monthEnd, n)
	default:
		res = skip(c.ID, fmt.Sprintf("unknown contract status: %s", c.Status))
	}
	if err != nil {
		return Result{}, n.notifications, err
	}
	return res, n.notifications, nil
}

func skip(contractID, message string) Result {
	return Result{ContractID: contractID, Status: ResultSkipped, Message: message}
}

func success(contractID string, periodID *string, message string) Result {
	return Result{ContractID: contractID, PeriodID: periodID, Status: ResultSuccess, Message: message}
}

func successResult(contractID string, row *accruedperiod.AccruedPeriod, message string) Result {
	if row == nil {
		return success(contractID, nil, message)
	}
	return success(contractID, row.ServicePeriodID, message)
}

func successWithPeriod(contractID string, periodID string, message string) Result {
	pid := periodID
	return success(contractID, &pid, message)
}

// ---- ACTIVE contract dispatch (spec.md SS4.7.1) ----

func (p *Processor) processActive(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart, monthEnd time.Time, n *notifier) (Result, error) {
	if agg.IsCompleted() {
		return p.cascadeBySignAndSkip(ctx, c)
	}

	if agg.RemainingIsZero() {
		if len(periods) == 0 {
			return p.noPeriods(ctx, c, agg, monthStart, monthEnd, n)
		}
		if err := p.mutator.CompleteWithoutAccrual(ctx, c, agg); err != nil {
			return Result{}, err
		}
		return skip(c.ID, "nothing remaining to accrue, marked complete"), nil
	}

	if agg.RemainingIsNegative() {
		return p.negativeAmountPath(ctx, c, agg, monthStart, "negative remaining amount accrued in full")
	}

	if len(periods) > 0 {
		return p.withPeriods(ctx, c, agg, periods, monthStart, monthEnd)
	}
	return p.noPeriods(ctx, c, agg, monthStart, monthEnd, n)
}

// cascadeBySignAndSkip implements SS4.7.1 step 2: an already-completed
// aggregate moves the contract to CLOSED or CANCELED by the sign of its
// total target amount, with no new accrual.
func (p *Processor) cascadeBySignAndSkip(ctx context.Context, c *contract.Contract) (Result, error) {
	if c.IsNegativeAmount() || c.IsZeroAmount() {
		c.Status = types.ContractStatusCanceled
	} else {
		c.Status = types.ContractStatusClosed
	}
	if err := p.contracts.Update(ctx, c); err != nil {
		return Result{}, err
	}
	return skip(c.ID, "aggregate already completed"), nil
}

// negativeAmountPath accrues the full (negative) remainder and, if the
// contract was still ACTIVE, cancels it (spec.md SS4.7.1 step 4). Contracts
// already CANCELED or CLOSED when this fires keep their status.
func (p *Processor) negativeAmountPath(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, targetMonth time.Time, message string) (Result, error) {
	if c.Status == types.ContractStatusActive {
		c.Status = types.ContractStatusCanceled
	}
	row, err := p.mutator.AccrueFullRemainder(ctx, c, agg, targetMonth)
	if err != nil {
		return Result{}, err
	}
	return successResult(c.ID, row, message), nil
}

// ---- With periods (spec.md SS4.7.2) ----

func (p *Processor) withPeriods(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart, monthEnd time.Time) (Result, error) {
	use, err := p.shouldUseInvoiceBasedAccrual(ctx, c, agg, periods, monthStart, monthEnd)
	if err != nil {
		return Result{}, err
	}
	if use {
		c.Status = types.ContractStatusClosed
		row, err := p.mutator.AccrueFullRemainder(ctx, c, agg, monthStart)
		if err != nil {
			return Result{}, err
		}
		return successResult(c.ID, row, "invoice-based accrual: service completed long before billing"), nil
	}

	per := arbiter.SelectAuthoritativePeriod(periods, monthStart, monthEnd)
	if per == nil {
		return skip(c.ID, "no service period overlaps with target month"), nil
	}

	if per.StatusChangeDate != nil && !per.StatusChangeDate.After(monthEnd) {
		switch per.Status {
		case types.PeriodStatusPostponed:
			return p.postponementAccrual(ctx, c, agg, per, monthStart, monthEnd)
		case types.PeriodStatusDropped:
			return p.droppedPeriod(ctx, c, agg, per, monthStart)
		case types.PeriodStatusEnded:
			return p.endedPeriod(ctx, c, agg, per, monthStart)
		}
	}

	if naturallyCompleted(per, monthStart, monthEnd) {
		switch per.Status {
		case types.PeriodStatusEnded:
			return p.endedPeriod(ctx, c, agg, per, monthStart)
		case types.PeriodStatusDropped:
			return p.droppedPeriod(ctx, c, agg, per, monthStart)
		}
	}

	return p.activePeriodAccrual(ctx, c, agg, per, monthStart, monthEnd)
}

// shouldUseInvoiceBasedAccrual implements spec.md SS4.7.2's "invoice-based
// override": a contract whose service finished long ago but is only now
// being billed.
func (p *Processor) shouldUseInvoiceBasedAccrual(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart, monthEnd time.Time) (bool, error) {
	if c.Status != types.ContractStatusActive {
		return false, nil
	}
	if !agg.RemainingAmountToAccrue.GreaterThan(decimal.Zero) {
		return false, nil
	}
	if !allEnded(periods) {
		return false, nil
	}

	invs, err := p.invoices.ListByContract(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if len(invs) == 0 {
		return false, nil
	}

	latest := latestEndDate(periods)
	if calendar.MonthGap(latest, c.ContractDate) < invoiceOverrideGapMonths {
		return false, nil
	}

	return !monthStart.After(c.ContractDate) && !c.ContractDate.After(monthEnd), nil
}

func allEnded(periods []*period.Period) bool {
	if len(periods) == 0 {
		return false
	}
	for _, p := range periods {
		if p.Status != types.PeriodStatusEnded {
			return false
		}
	}
	return true
}

func latestEndDate(periods []*period.Period) time.Time {
	var latest time.Time
	for _, p := range periods {
		if p.EndDate.After(latest) {
			latest = p.EndDate
		}
	}
	return latest
}

// naturallyCompleted implements spec.md SS4.7.2's fallback for a period
// whose status changed after its own end date: it should still be fully
// accrued, in the month containing that end date.
func naturallyCompleted(per *period.Period, monthStart, monthEnd time.Time) bool {
	if per.Status != types.PeriodStatusEnded && per.Status != types.PeriodStatusDropped {
		return false
	}
	if per.StatusChangeDate == nil || !per.StatusChangeDate.After(per.EndDate) {
		return false
	}
	return !monthStart.After(per.EndDate) && !per.EndDate.After(monthEnd)
}

func (p *Processor) endedPeriod(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, per *period.Period, targetMonth time.Time) (Result, error) {
	c.Status = types.ContractStatusClosed
	_, err := p.mutator.AccrueFullRemainder(ctx, c, agg, targetMonth)
	if err != nil {
		return Result{}, err
	}
	return successWithPeriod(c.ID, per.ID, "service period ended, accrued remaining amount in full"), nil
}

func (p *Processor) droppedPeriod(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, per *period.Period, targetMonth time.Time) (Result, error) {
	if agg.RemainingIsNegative() && agg.TotalAmountAccrued.IsZero() {
		res, err := p.negativeAmountPath(ctx, c, agg, targetMonth, "period dropped before accrual")
		if err != nil {
			return Result{}, err
		}
		res.PeriodID = &per.ID
		return res, nil
	}
	c.Status = types.ContractStatusCanceled
	_, err := p.mutator.AccrueFullRemainder(ctx, c, agg, targetMonth)
	if err != nil {
		return Result{}, err
	}
	return successWithPeriod(c.ID, per.ID, "service period dropped, accrued fully and canceled"), nil
}

func (p *Processor) activePeriodAccrual(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, per *period.Period, monthStart, monthEnd time.Time) (Result, error) {
	portion, sessions := monthlyPortionAndSessions(agg, per, c.Service, monthStart, monthEnd)
	_, err := p.mutator.AccruePortion(ctx, c, agg, portion, monthStart, per, sessions)
	if err != nil {
		return Result{}, err
	}
	return successWithPeriod(c.ID, per.ID, fmt.Sprintf("accrued monthly portion %s", portion.StringFixed(4))), nil
}

// monthlyPortionAndSessions implements spec.md SS4.7.2's "monthly portion"
// derivation. A POSTPONED period's effective end is capped at its
// status_change_date when that falls before the period's own end.
func monthlyPortionAndSessions(agg *accrual.ContractAccrual, per *period.Period, spec contract.ServiceSpec, monthStart, monthEnd time.Time) (decimal.Decimal, int) {
	effectiveEnd := per.EndDate
	if per.Status == types.PeriodStatusPostponed && per.StatusChangeDate != nil && per.StatusChangeDate.Before(per.EndDate) {
		effectiveEnd = *per.StatusChangeDate
	}

	overlapStart := calendar.Max(per.StartDate, monthStart)
	overlapEnd := calendar.Min(effectiveEnd, monthEnd)
	if overlapStart.After(overlapEnd) {
		return decimal.Zero, 0
	}

	sessions := allocator.SessionsInRange(per, spec, overlapStart, overlapEnd)
	remaining := agg.SessionsRemainingToAccrue
	if remaining <= 0 {
		return decimal.Zero, sessions
	}
	portion := types.ClampPortion(decimal.NewFromInt(int64(sessions)).Div(decimal.NewFromInt(int64(remaining))))
	return portion, sessions
}

// portionUntilStatusChange implements spec.md SS4.7.3's in-month
// postponement calculation: the overlap is capped at the status change
// date rather than the period's effective end.
func portionUntilStatusChange(agg *accrual.ContractAccrual, per *period.Period, spec contract.ServiceSpec, monthStart, monthEnd, changeDate time.Time) (decimal.Decimal, int) {
	effectiveEnd := calendar.Min(changeDate, monthEnd)
	overlapStart := calendar.Max(per.StartDate, monthStart)
	if overlapStart.After(effectiveEnd) {
		return decimal.Zero, 0
	}

	sessions := allocator.SessionsInRange(per, spec, overlapStart, effectiveEnd)
	remaining := agg.SessionsRemainingToAccrue
	if remaining <= 0 {
		return decimal.Zero, sessions
	}
	portion := types.ClampPortion(decimal.NewFromInt(int64(sessions)).Div(decimal.NewFromInt(int64(remaining))))
	return portion, sessions
}

// ---- POSTPONEMENT accrual (spec.md SS4.7.3) ----

func (p *Processor) postponementAccrual(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, per *period.Period, monthStart, monthEnd time.Time) (Result, error) {
	cd := *per.StatusChangeDate

	var (
		err error
		msg string
	)
	if !monthStart.After(cd) && !cd.After(monthEnd) {
		portion, sessions := portionUntilStatusChange(agg, per, c.Service, monthStart, monthEnd, cd)
		_, err = p.mutator.AccruePortion(ctx, c, agg, portion, monthStart, per, sessions)
		msg = "accrued until postponement date, aggregate paused"
	} else {
		portion, sessions := monthlyPortionAndSessions(agg, per, c.Service, monthStart, monthEnd)
		if sessions == 0 && portion.IsZero() {
			// Postponed before this month: nothing to accrue, no row written.
			msg = "period postponed before this month, nothing accrued, aggregate paused"
		} else {
			_, err = p.mutator.AccruePortion(ctx, c, agg, portion, monthStart, per, sessions)
			msg = "accrued postponed period's remaining monthly portion, aggregate paused"
		}
	}
	if err != nil {
		return Result{}, err
	}

	if err := p.mutator.PauseAggregate(ctx, agg); err != nil {
		return Result{}, err
	}

	return successWithPeriod(c.ID, per.ID, msg), nil
}

// ---- No periods (spec.md SS4.7.4) ----

func (p *Processor) noPeriods(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, monthStart, monthEnd time.Time, n *notifier) (Result, error) {
	cl, err := p.clients.Get(ctx, c.ClientRef)
	if err != nil {
		return Result{}, err
	}
	rec, err := p.reconciler.Reconcile(ctx, cl)
	if err != nil {
		return Result{}, err
	}

	if rec == nil {
		if isContractRecent(c, monthEnd) {
			n.add(c.ID, fmt.Sprintf("contract %s - possibly missing in CRM", c.ID))
			return skip(c.ID, "no lms record, contract recent"), nil
		}
		return p.resign(ctx, c, agg, monthStart, "client resignation: no lms profile")
	}

	classification := types.ClassifyLMSStatus(rec.EducationalStatus)
	changedBeforeMonthEnd := rec.StatusChangeDate != nil && !rec.StatusChangeDate.After(monthEnd)

	switch classification {
	case types.LMSClassificationDropped:
		if !changedBeforeMonthEnd {
			return skip(c.ID, "drop change date after month end - ignoring"), nil
		}
		return p.resign(ctx, c, agg, monthStart, "client resignation: dropped in lms")

	case types.LMSClassificationEnded:
		if !changedBeforeMonthEnd {
			return skip(c.ID, "status change date after month end - ignoring"), nil
		}
		if c.IsZeroAmount() {
			return p.resign(ctx, c, agg, monthStart, "client ended in lms (zero-amount)")
		}
		return p.resignClosed(ctx, c, agg, monthStart, "client ended in lms, accrued fully and closed")

	default:
		if isContractRecent(c, monthEnd) {
			return skip(c.ID, "recent contract without service period - ignoring"), nil
		}
		n.add(c.ID, fmt.Sprintf("contract %s - client without service period in CRM", c.ID))
		return skip(c.ID, "client without service period - reminder sent"), nil
	}
}

// isContractRecent reports whether a contract's date is close enough to
// the target month's end that a CRM/LMS discrepancy is probably just sync
// lag rather than a real mismatch (spec.md SS4.7.4).
func isContractRecent(c *contract.Contract, monthEnd time.Time) bool {
	return calendar.WithinDays(c.ContractDate, monthEnd, recentContractWindowDays)
}

// resign accrues the full remainder (or, for a zero-amount contract with
// no prior AccruedPeriod, writes the audit row from spec.md SS4.7.7) and
// cancels the contract if it was still ACTIVE.
func (p *Processor) resign(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, targetMonth time.Time, message string) (Result, error) {
	wasActive := c.Status == types.ContractStatusActive

	if c.IsZeroAmount() {
		existing, err := p.accrueds.ListByAccrual(ctx, agg.ID)
		if err != nil {
			return Result{}, err
		}
		if len(existing) > 0 {
			return success(c.ID, nil, message+" - already processed with accrual record"), nil
		}

		accrualDate, err := p.zeroAmountAccrualDate(ctx, c, targetMonth)
		if err != nil {
			return Result{}, err
		}
		if wasActive {
			c.Status = types.ContractStatusCanceled
		}
		row, err := p.mutator.ZeroAmountResignation(ctx, c, agg, accrualDate)
		if err != nil {
			return Result{}, err
		}
		return successResult(c.ID, row, message+" - zero-amount audit row written"), nil
	}

	if wasActive {
		c.Status = types.ContractStatusCanceled
	}
	row, err := p.mutator.AccrueFullRemainder(ctx, c, agg, targetMonth)
	if err != nil {
		return Result{}, err
	}
	return successResult(c.ID, row, message+" - accrued fully"), nil
}

// resignClosed is the "ended in LMS" resignation for a non-zero-amount
// contract: unlike resign, the contract always lands on CLOSED, regardless
// of the status it was dispatched from (spec.md SS4.7.4).
func (p *Processor) resignClosed(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, targetMonth time.Time, message string) (Result, error) {
	c.Status = types.ContractStatusClosed
	row, err := p.mutator.AccrueFullRemainder(ctx, c, agg, targetMonth)
	if err != nil {
		return Result{}, err
	}
	return successResult(c.ID, row, message), nil
}

// zeroAmountAccrualDate implements spec.md SS4.7.7's accrual-date
// precedence: the last credit note's month, else the target month, else
// the current month.
func (p *Processor) zeroAmountAccrualDate(ctx context.Context, c *contract.Contract, targetMonth time.Time) (time.Time, error) {
	invs, err := p.invoices.ListByContract(ctx, c.ID)
	if err != nil {
		return time.Time{}, err
	}

	var latest *invoice.Invoice
	for _, inv := range invs {
		if !inv.IsCreditNote() {
			continue
		}
		if latest == nil || inv.InvoiceDate.After(latest.InvoiceDate) {
			latest = inv
		}
	}
	if latest != nil {
		return calendar.MonthStart(latest.InvoiceDate), nil
	}
	if !targetMonth.IsZero() {
		return calendar.MonthStart(targetMonth), nil
	}
	return calendar.MonthStart(time.Now().UTC()), nil
}

// completedZeroAmountAuditRow implements the candidate filter's exception
// (spec.md SS4.7): a zero-amount contract can reach COMPLETED without ever
// writing an AccruedPeriod — the "remaining=0, has periods" auto-complete
// path (CompleteWithoutAccrual) writes none — so a CLOSED/CANCELED,
// already-completed, zero-amount contract still gets the SS4.7.7 audit
// row once before it is skipped for good. Reports wrote=true when it did.
func (p *Processor) completedZeroAmountAuditRow(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, targetMonth time.Time) (Result, bool, error) {
	if !c.IsZeroAmount() {
		return Result{}, false, nil
	}
	existing, err := p.accrueds.ListByAccrual(ctx, agg.ID)
	if err != nil {
		return Result{}, false, err
	}
	if len(existing) > 0 {
		return Result{}, false, nil
	}
	accrualDate, err := p.zeroAmountAccrualDate(ctx, c, targetMonth)
	if err != nil {
		return Result{}, false, err
	}
	row, err := p.mutator.ZeroAmountResignation(ctx, c, agg, accrualDate)
	if err != nil {
		return Result{}, false, err
	}
	return successResult(c.ID, row, "zero-amount audit row written for already-completed contract"), true, nil
}

// ---- CANCELED contract dispatch (spec.md SS4.7.5) ----

func (p *Processor) processCanceled(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart, monthEnd time.Time, n *notifier) (Result, error) {
	if agg.IsCompleted() {
		if res, wrote, err := p.completedZeroAmountAuditRow(ctx, c, agg, monthStart); err != nil {
			return Result{}, err
		} else if wrote {
			return res, nil
		}
		return skip(c.ID, "contract accrual already completed"), nil
	}

	if agg.RemainingIsZero() {
		if len(periods) == 0 {
			return p.noPeriods(ctx, c, agg, monthStart, monthEnd, n)
		}
		if err := p.mutator.CompleteWithoutAccrual(ctx, c, agg); err != nil {
			return Result{}, err
		}
		return skip(c.ID, "nothing remaining to accrue, marked complete"), nil
	}

	if agg.RemainingIsNegative() {
		return p.negativeAmountPath(ctx, c, agg, monthStart, "negative remaining amount accrued for canceled contract")
	}

	if len(periods) == 0 {
		return p.noPeriods(ctx, c, agg, monthStart, monthEnd, n)
	}
	return p.canceledWithPeriods(ctx, c, agg, periods, monthStart, n)
}

// canceledWithPeriods implements spec.md SS4.7.5's congruence check: a
// canceled contract is expected to carry only DROPPED or POSTPONED
// periods.
func (p *Processor) canceledWithPeriods(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart time.Time, n *notifier) (Result, error) {
	for _, per := range periods {
		if per.Status == types.PeriodStatusActive || per.Status == types.PeriodStatusEnded {
			n.add(c.ID, fmt.Sprintf("contract %s canceled but has a %s service period", c.ID, per.Status))
			return skip(c.ID, "canceled contract has active/ended service periods"), nil
		}
	}
	c.Status = types.ContractStatusCanceled
	row, err := p.mutator.AccrueFullRemainder(ctx, c, agg, monthStart)
	if err != nil {
		return Result{}, err
	}
	return successResult(c.ID, row, "canceled contract with dropped/postponed periods, accrued fully"), nil
}

// ---- CLOSED contract dispatch (spec.md SS4.7.6) ----

func (p *Processor) processClosed(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart, monthEnd time.Time, n *notifier) (Result, error) {
	if agg.IsCompleted() {
		if res, wrote, err := p.completedZeroAmountAuditRow(ctx, c, agg, monthStart); err != nil {
			return Result{}, err
		} else if wrote {
			return res, nil
		}
		return skip(c.ID, "contract accrual already completed"), nil
	}

	if agg.RemainingIsZero() {
		if err := p.mutator.CompleteWithoutAccrual(ctx, c, agg); err != nil {
			return Result{}, err
		}
		return skip(c.ID, "nothing remaining to accrue, marked complete"), nil
	}

	if agg.RemainingIsNegative() {
		return p.negativeAmountPath(ctx, c, agg, monthStart, "negative remaining amount accrued for closed contract")
	}

	if len(periods) == 0 {
		return p.noPeriods(ctx, c, agg, monthStart, monthEnd, n)
	}
	return p.closedWithPeriods(ctx, c, agg, periods, monthStart, monthEnd, n)
}

// closedWithPeriods implements spec.md SS4.7.6: an incomplete accrual on a
// closed contract is processed exactly like an ACTIVE contract's (the
// invoice-based override never applies here, since it requires the
// contract to still be ACTIVE); a complete one is only re-examined for
// status congruence.
func (p *Processor) closedWithPeriods(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, periods []*period.Period, monthStart, monthEnd time.Time, n *notifier) (Result, error) {
	if !agg.IsCompleted() && !agg.RemainingIsZero() {
		return p.withPeriods(ctx, c, agg, periods, monthStart, monthEnd)
	}

	for _, per := range periods {
		if per.Status != types.PeriodStatusEnded {
			n.add(c.ID, fmt.Sprintf("contract %s closed but has a non-ended service period", c.ID))
			return skip(c.ID, "closed contract with non-ended service periods"), nil
		}
	}
	c.Status = types.ContractStatusClosed
	row, err := p.mutator.AccrueFullRemainder(ctx, c, agg, monthStart)
	if err != nil {
		return Result{}, err
	}
	return successResult(c.ID, row, "closed contract with ended periods, accrued fully"), nil
}
