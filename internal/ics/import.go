package ics

import (
	"context"

	"calpin/internal/event"
	appLog "calpin/internal/log"
	"calpin/internal/model"
)

// Creator validates and stores one event candidate. *event.Service
// satisfies it.
type Creator interface {
	CreateCandidate(ctx context.Context, c event.Changes) (model.Event, error)
}

// ImportResult reports what happened to one VEVENT. Exactly one of Event
// and Err is set.
type ImportResult struct {
	UID   string
	Event *model.Event
	Err   error
}

// Import creates an event for every parsed VEVENT. Each one is validated
// on its own, so a bad entry does not stop the rest.
func Import(ctx context.Context, creator Creator, parsed []ParsedEvent) []ImportResult {
	results := make([]ImportResult, 0, len(parsed))
	created := 0
	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			results = append(results, ImportResult{UID: p.UID, Err: err})
			continue
		}
		ev, err := creator.CreateCandidate(ctx, p.Changes())
		if err != nil {
			appLog.Debug("ics import rejected", "uid", p.UID, "err", err)
			results = append(results, ImportResult{UID: p.UID, Err: err})
			continue
		}
		created++
		results = append(results, ImportResult{UID: p.UID, Event: &ev})
	}
	appLog.Info("ics import completed", "total", len(parsed), "created", created)
	return results
}
