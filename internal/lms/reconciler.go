package lms

import (
	"context"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/calendar"
	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/fourgeeks/accrual-engine/internal/types"
)

// externalIDSystem is the key under which the LMS's own page id is stored
// in Client.ExternalIDs.
const externalIDSystem = "lms"

// Result is the reconciler's normalized view of a client's enrollment.
type Result struct {
	EducationalStatus types.LMSEducationalStatus
	StatusChangeDate  *time.Time
}

// Reconciler looks up a contract's client in the LMS and normalizes the
// response for the core's resignation handling (spec.md SS4.6).
type Reconciler struct {
	client Client
	log    *logger.Logger
}

// NewReconciler builds a Reconciler over the given LMS Client.
func NewReconciler(c Client, log *logger.Logger) *Reconciler {
	return &Reconciler{client: c, log: log}
}

// Reconcile fetches c's LMS record by external id if one is linked, else by
// email, and normalizes the result. Returns (nil, nil) if the client cannot
// be located in the LMS.
func (r *Reconciler) Reconcile(ctx context.Context, c *client.Client) (*Result, error) {
	var (
		record *Record
		err    error
	)

	if extID := c.ExternalID(externalIDSystem); extID != "" {
		record, err = r.client.FetchByExternalID(ctx, extID)
	} else {
		record, err = r.client.FetchByEmail(ctx, c.Email)
	}
	if err != nil {
		return nil, err
	}
	if record == nil {
		if r.log != nil {
			r.log.WithContext(ctx).Debugw("lms record not found", "client_id", c.ID)
		}
		return nil, nil
	}

	normalized := types.NormalizeLMSStatus(record.EducationalStatus)
	result := &Result{EducationalStatus: normalized}
	if record.StatusChangeDate != nil {
		civil := calendar.ToCivilDate(*record.StatusChangeDate)
		result.StatusChangeDate = &civil
	}
	return result, nil
}
