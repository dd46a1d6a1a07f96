// Package testutil provides in-memory fakes for the engine's repository
// interfaces, in the style of the teacher's InMemoryCustomerRepository:
// a mutex-guarded map per store, no mocking framework involved.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/domain/accruedperiod"
	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/invoice"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/types"
)

// Transactor is a no-op Transactor: it runs fn directly against the
// process-local fakes, since they have no real transactional boundary.
type Transactor struct{}

func (Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ContractRepository is an in-memory contract.Repository.
type ContractRepository struct {
	mu    sync.RWMutex
	store map[string]*contract.Contract
}

func NewContractRepository() *ContractRepository {
	return &ContractRepository{store: make(map[string]*contract.Contract)}
}

func (r *ContractRepository) Put(c *contract.Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[c.ID] = c
}

func (r *ContractRepository) Get(ctx context.Context, id string) (*contract.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.store[id]; ok {
		return c, nil
	}
	return nil, ierr.NewError("contract not found").Mark(ierr.ErrNotFound)
}

func (r *ContractRepository) Update(ctx context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[c.ID]; !ok {
		return ierr.NewError("contract not found").Mark(ierr.ErrNotFound)
	}
	r.store[c.ID] = c
	return nil
}

func (r *ContractRepository) ListCandidates(ctx context.Context, filter contract.CandidateFilter) ([]*contract.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*contract.Contract, 0, len(r.store))
	for _, c := range r.store {
		if c.ContractDate.After(filter.TargetMonthEnd) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return applyFilter(out, filter.QueryFilter), nil
}

func applyFilter(cs []*contract.Contract, f types.QueryFilter) []*contract.Contract {
	if f.Offset >= len(cs) {
		return nil
	}
	end := len(cs)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return cs[f.Offset:end]
}

// PeriodRepository is an in-memory period.Repository.
type PeriodRepository struct {
	mu    sync.RWMutex
	store map[string]*period.Period
}

func NewPeriodRepository() *PeriodRepository {
	return &PeriodRepository{store: make(map[string]*period.Period)}
}

func (r *PeriodRepository) Put(p *period.Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[p.ID] = p
}

func (r *PeriodRepository) Get(ctx context.Context, id string) (*period.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.store[id]; ok {
		return p, nil
	}
	return nil, ierr.NewError("period not found").Mark(ierr.ErrNotFound)
}

func (r *PeriodRepository) ListByContract(ctx context.Context, contractID string) ([]*period.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*period.Period
	for _, p := range r.store {
		if p.ContractID == contractID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *PeriodRepository) Update(ctx context.Context, p *period.Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[p.ID]; !ok {
		return ierr.NewError("period not found").Mark(ierr.ErrNotFound)
	}
	r.store[p.ID] = p
	return nil
}

// AccrualRepository is an in-memory accrual.Repository.
type AccrualRepository struct {
	mu         sync.RWMutex
	byContract map[string]*accrual.ContractAccrual
}

func NewAccrualRepository() *AccrualRepository {
	return &AccrualRepository{byContract: make(map[string]*accrual.ContractAccrual)}
}

func (r *AccrualRepository) GetByContract(ctx context.Context, contractID string) (*accrual.ContractAccrual, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byContract[contractID]; ok {
		return a, nil
	}
	return nil, ierr.NewError("accrual not found").Mark(ierr.ErrNotFound)
}

func (r *AccrualRepository) Create(ctx context.Context, a *accrual.ContractAccrual) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byContract[a.ContractID]; ok {
		return ierr.NewError("accrual already exists").Mark(ierr.ErrAlreadyExists)
	}
	r.byContract[a.ContractID] = a
	return nil
}

func (r *AccrualRepository) Update(ctx context.Context, a *accrual.ContractAccrual) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byContract[a.ContractID]; !ok {
		return ierr.NewError("accrual not found").Mark(ierr.ErrNotFound)
	}
	a.Version++
	r.byContract[a.ContractID] = a
	return nil
}

// AccruedPeriodRepository is an in-memory accruedperiod.Repository.
type AccruedPeriodRepository struct {
	mu    sync.RWMutex
	store map[string]*accruedperiod.AccruedPeriod
}

func NewAccruedPeriodRepository() *AccruedPeriodRepository {
	return &AccruedPeriodRepository{store: make(map[string]*accruedperiod.AccruedPeriod)}
}

func (r *AccruedPeriodRepository) Create(ctx context.Context, ap *accruedperiod.AccruedPeriod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[ap.ID] = ap
	return nil
}

func (r *AccruedPeriodRepository) ExistsForPeriod(ctx context.Context, contractAccrualID, periodID string, accrualDate time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ap := range r.store {
		if ap.ContractAccrualID == contractAccrualID && ap.ServicePeriodID != nil && *ap.ServicePeriodID == periodID && ap.AccrualDate.Equal(accrualDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *AccruedPeriodRepository) ExistsFullRemainder(ctx context.Context, contractAccrualID string, accrualDate time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ap := range r.store {
		if ap.ContractAccrualID == contractAccrualID && ap.ServicePeriodID == nil && ap.AccrualDate.Equal(accrualDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *AccruedPeriodRepository) ListByAccrual(ctx context.Context, contractAccrualID string) ([]*accruedperiod.AccruedPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*accruedperiod.AccruedPeriod
	for _, ap := range r.store {
		if ap.ContractAccrualID == contractAccrualID {
			out = append(out, ap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccrualDate.Before(out[j].AccrualDate) })
	return out, nil
}

// ClientRepository is an in-memory client.Repository.
type ClientRepository struct {
	mu    sync.RWMutex
	store map[string]*client.Client
}

func NewClientRepository() *ClientRepository {
	return &ClientRepository{store: make(map[string]*client.Client)}
}

func (r *ClientRepository) Put(c *client.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[c.ID] = c
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.store[id]; ok {
		return c, nil
	}
	return nil, ierr.NewError("client not found").Mark(ierr.ErrNotFound)
}

// InvoiceRepository is an in-memory invoice.Repository.
type InvoiceRepository struct {
	mu    sync.RWMutex
	store map[string][]*invoice.Invoice
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{store: make(map[string][]*invoice.Invoice)}
}

func (r *InvoiceRepository) Put(contractID string, inv *invoice.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[contractID] = append(r.store[contractID], inv)
}

func (r *InvoiceRepository) ListByContract(ctx context.Context, contractID string) ([]*invoice.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store[contractID], nil
}
