package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridianhq/meridian/pkg/tenants"
)

// BlockedError reports a denied quota check as an error, for callers that
// thread denials through error returns instead of inspecting decisions.
type BlockedError struct {
	Metric  string
	Current int64
	Limit   int64
	State   GraceState
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("quota blocked for %s: %d of %d used", e.Metric, e.Current, e.Limit)
}

// IsBlocked reports whether err is a quota denial.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

// EnforceCreate runs a hard-limit check and returns a BlockedError when the
// tenant is at or over the limit. No grace-period escalation.
func (e *Enforcer) EnforceCreate(ctx context.Context, tenant *tenants.Tenant, metric string) error {
	result, err := e.CanCreate(ctx, tenant, metric)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return &BlockedError{
			Metric:  metric,
			Current: result.Current,
			Limit:   result.Limit,
			State:   StateBlocked,
		}
	}
	return nil
}
