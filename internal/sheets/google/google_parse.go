package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	ports "savings/internal/sheets"
)

// parseLedger converts a values matrix (as returned by Sheets API) into
// achievements. The first row is the header; blank rows are skipped.
func parseLedger(values [][]interface{}) ([]ports.Achievement, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	if indexOf(headers, "Goal ID") == -1 {
		return nil, fmt.Errorf("unexpected ledger header: missing Goal ID; got headers=%v", headers)
	}

	out := make([]ports.Achievement, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.TrimSpace(safeGet(row, 5)) == "" {
			continue
		}
		a := ports.Achievement{
			Name:    safeGet(row, 1),
			GoalID:  safeGet(row, 5),
			OwnerID: safeGet(row, 6),
		}
		var err error
		if a.AchievedAt, err = time.Parse(core.DateLayout, safeGet(row, 0)); err != nil {
			return nil, fmt.Errorf("row %d: achieved date %q: %w", i+1, safeGet(row, 0), err)
		}
		if a.Target, err = parseMoney(safeGet(row, 2)); err != nil {
			return nil, fmt.Errorf("row %d: target: %w", i+1, err)
		}
		if a.Reached, err = parseMoney(safeGet(row, 3)); err != nil {
			return nil, fmt.Errorf("row %d: reached: %w", i+1, err)
		}
		if s := safeGet(row, 4); s != "" {
			if a.Deadline, err = core.ParseDate(s); err != nil {
				return nil, fmt.Errorf("row %d: deadline %q: %w", i+1, s, err)
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// parseMoney accepts plain decimals and the "$1,234.50" display form.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	return decimal.NewFromString(s)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
