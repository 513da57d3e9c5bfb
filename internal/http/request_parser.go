// This file implements decoding and validation of JSON request bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

var errBadBody = errors.New("malformed request body")

// Amount accepts a JSON number or a decimal string such as "12,50".
type Amount struct {
	decimal.Decimal
	Set bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return core.ErrInvalidAmount
		}
		raw = s
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal, a.Set = d, true
	return nil
}

// createGoalRequest is the body of POST /goals.
type createGoalRequest struct {
	Name          string `json:"name"`
	TargetAmount  Amount `json:"target_amount"`
	CurrentAmount Amount `json:"current_amount"`
	Deadline      string `json:"deadline"`
}

func (r createGoalRequest) toNewGoal() (core.NewGoal, error) {
	if !r.TargetAmount.Set {
		return core.NewGoal{}, core.ErrInvalidTarget
	}
	deadline, err := core.ParseDate(r.Deadline)
	if err != nil {
		return core.NewGoal{}, err
	}
	return core.NewGoal{
		Name:          sanitizeInput(r.Name),
		TargetAmount:  r.TargetAmount.Decimal,
		CurrentAmount: r.CurrentAmount.Decimal,
		Deadline:      deadline,
	}, nil
}

// updateGoalRequest is the body of PATCH /goals/{id}. Absent fields are left
// unchanged; the balance cannot be edited here. CurrentAmount is kept raw so
// that an explicit null is still seen as present.
type updateGoalRequest struct {
	Name          *string         `json:"name"`
	TargetAmount  Amount          `json:"target_amount"`
	Deadline      *string         `json:"deadline"`
	CurrentAmount json.RawMessage `json:"current_amount"`
}

func (r updateGoalRequest) toEdits() ([]core.Edit, error) {
	if len(r.CurrentAmount) > 0 {
		return nil, fmt.Errorf("%w: current_amount changes through contributions", core.ErrValidation)
	}
	var edits []core.Edit
	if r.Name != nil {
		edits = append(edits, core.Rename{Name: sanitizeInput(*r.Name)})
	}
	if r.TargetAmount.Set {
		edits = append(edits, core.Retarget{TargetAmount: r.TargetAmount.Decimal})
	}
	if r.Deadline != nil {
		d, err := core.ParseDate(*r.Deadline)
		if err != nil {
			return nil, err
		}
		edits = append(edits, core.Reschedule{Deadline: d})
	}
	return edits, nil
}

// contributionRequest is the body of POST /goals/{id}/contributions.
type contributionRequest struct {
	Amount Amount `json:"amount"`
}

// decodeJSON reads a bounded JSON body into dst. Validation errors raised
// while decoding amounts keep their core sentinel.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}
