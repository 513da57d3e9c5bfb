package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"savings/internal/core"
	"savings/internal/goals"
	"savings/internal/log"
)

// goalResponse is the wire form of a goal with its derived metrics.
type goalResponse struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	TargetAmount  string       `json:"target_amount"`
	CurrentAmount string       `json:"current_amount"`
	Deadline      core.Date    `json:"deadline"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Metrics       core.Metrics `json:"metrics"`
	Display       goalDisplay  `json:"display"`
}

// goalDisplay carries preformatted strings for clients that render as-is.
type goalDisplay struct {
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"`
	Deadline      string `json:"deadline"`
}

func newGoalResponse(g goals.GoalStatus) goalResponse {
	return goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.StringFixed(core.AmountScale),
		CurrentAmount: g.CurrentAmount.StringFixed(core.AmountScale),
		Deadline:      g.Deadline,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		Metrics:       g.Metrics,
		Display: goalDisplay{
			TargetAmount:  core.FormatCurrency(g.TargetAmount),
			CurrentAmount: core.FormatCurrency(g.CurrentAmount),
			Deadline:      core.FormatDate(g.Deadline),
		},
	}
}

// listResponse is the body of GET /goals. Loading and StaleError describe
// the cached collection the goals were read from.
type listResponse struct {
	Goals      []goalResponse `json:"goals"`
	Loading    bool           `json:"loading"`
	StaleError string         `json:"stale_error,omitempty"`
	FetchedAt  *time.Time     `json:"fetched_at,omitempty"`
}

func newListResponse(c goals.Collection) listResponse {
	out := listResponse{
		Goals:   make([]goalResponse, 0, len(c.Goals)),
		Loading: c.Loading,
	}
	for _, g := range c.Goals {
		out.Goals = append(out.Goals, newGoalResponse(g))
	}
	if c.Err != nil {
		out.StaleError = core.ErrorKind(c.Err)
	}
	if !c.FetchedAt.IsZero() {
		t := c.FetchedAt
		out.FetchedAt = &t
	}
	return out
}

// contributionResponse is the body of POST /goals/{id}/contributions.
type contributionResponse struct {
	Goal           goalResponse `json:"goal"`
	Event          string       `json:"event"`
	PreviousAmount string       `json:"previous_amount"`
	Achieved       bool         `json:"achieved"`
}

func newContributionResponse(res goals.ContributionResult) contributionResponse {
	return contributionResponse{
		Goal:           newGoalResponse(goals.GoalStatus{SavingsGoal: res.Goal, Metrics: res.Metrics}),
		Event:          string(res.Event()),
		PreviousAmount: res.Previous.StringFixed(core.AmountScale),
		Achieved:       res.Outcome == core.OutcomeAchieved,
	}
}

// writeError logs a failed operation and writes the mapped response.
// Client mistakes log at warn level, everything else at error.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if errors.Is(err, errBadBody) {
		logger.WarnContext(ctx, "Rejected request body", log.FieldOperation, op, log.FieldError, err)
		BadRequestError(err.Error()).Write(w)
		return
	}

	kind := core.ErrorKind(err)
	switch kind {
	case core.KindValidation, core.KindNotFound, core.KindUnauthenticated:
		logger.WarnContext(ctx, "Goal request refused",
			log.FieldOperation, op, log.FieldErrorType, kind, log.FieldError, err)
	default:
		log.NewStructuredLogger(logger).LogError(ctx, "Goal request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithErrorType(kind))
	}
	EngineError(err).Write(w)
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
