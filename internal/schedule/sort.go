package schedule

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"visitroute/internal/model"
)

// SortClients orders by date ascending, then time of day, with all-day
// clients after timed ones on the same date. The input is not modified.
func SortClients(clients []model.Client) []model.Client {
	out := append([]model.Client(nil), clients...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return timeValue(a.Time) < timeValue(b.Time)
	})
	return out
}

func timeValue(t string) int {
	if t == "" {
		return math.MaxInt
	}
	h, m, _ := strings.Cut(t, ":")
	hours, err := strconv.Atoi(h)
	if err != nil {
		return math.MaxInt
	}
	minutes := 0
	if m != "" {
		if minutes, err = strconv.Atoi(m); err != nil {
			return math.MaxInt
		}
	}
	return hours*60 + minutes
}
