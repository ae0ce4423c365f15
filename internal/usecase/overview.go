package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ElemPulse/internal/elemental"
)

// OverviewUseCase assembles the combined read view: entity snapshot, cohort
// consensus, and the holistic ledger, fetched concurrently. A failing
// section lands in Errors instead of failing the whole view.
type OverviewUseCase struct {
	insights *InsightService
	timeout  time.Duration
}

func NewOverviewUseCase(insights *InsightService) *OverviewUseCase {
	return &OverviewUseCase{insights: insights, timeout: 10 * time.Second}
}

type GetOverviewParams struct {
	Entity  string
	Subject string
}

// Overview is the consolidated read model.
type Overview struct {
	Entity    string                        `json:"entity"`
	Timestamp time.Time                     `json:"timestamp"`
	Snapshot  *elemental.EntitySnapshot     `json:"snapshot,omitempty"`
	Consensus []elemental.ConsensusSnapshot `json:"consensus,omitempty"`
	Ledger    *elemental.LedgerSnapshot     `json:"ledger,omitempty"`
	Errors    map[string]string             `json:"errors,omitempty"`
}

func (uc *OverviewUseCase) GetOverview(ctx context.Context, p GetOverviewParams) (*Overview, error) {
	if p.Entity == "" {
		return nil, fmt.Errorf("entity required")
	}

	// Overall timeout
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &Overview{
		Entity:    p.Entity,
		Timestamp: time.Now().UTC(),
		Errors:    map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.insights.EntityInsight(p.Entity)
		ch <- item{"snapshot", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.insights.Consensus(p.Subject)
		ch <- item{"consensus", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"ledger", uc.insights.LedgerSnapshot(), nil}
	}()

	go func() { wg.Wait(); close(ch) }()

collect:
	for pending := 3; pending > 0; pending-- {
		if ctx.Err() != nil {
			res.Errors["overview"] = ctx.Err().Error()
			break
		}
		var it item
		var ok bool
		select {
		case it, ok = <-ch:
			if !ok {
				break collect
			}
		case <-ctx.Done():
			res.Errors["overview"] = ctx.Err().Error()
			break collect
		}
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "snapshot":
			v := it.val.(elemental.EntitySnapshot)
			res.Snapshot = &v
		case "consensus":
			res.Consensus = it.val.([]elemental.ConsensusSnapshot)
		case "ledger":
			v := it.val.(elemental.LedgerSnapshot)
			res.Ledger = &v
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
