// Package outcome is the per-record result variant spec §9's design note
// calls for in place of the source's catch-and-continue exception handling:
// {ok(value), fail(kind, detail)}.
package outcome

import "github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"

type Outcome struct {
	OK     bool
	Kind   errs.Kind
	Detail string
}

func OK() Outcome { return Outcome{OK: true} }

func Fail(kind errs.Kind, detail string) Outcome {
	return Outcome{Kind: kind, Detail: detail}
}
