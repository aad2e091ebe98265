package schedule

import (
	"fmt"
	"time"

	"visitroute/internal/model"
	"visitroute/internal/opt"
)

var zhWeekdays = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// DateLabel renders a YYYY-MM-DD key for display, prefixed when it is today.
func DateLabel(date string, isToday bool, locale opt.Locale) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	if locale == opt.LocaleZH {
		label := fmt.Sprintf("%d月%d日%s", int(d.Month()), d.Day(), zhWeekdays[d.Weekday()])
		if isToday {
			return "今天 · " + label
		}
		return label
	}
	label := d.Format("Mon 2 Jan")
	if isToday {
		return "Today · " + label
	}
	return label
}

// groupByDate buckets sorted clients per day, keeping day order.
func groupByDate(clients []model.Client, today string, locale opt.Locale) []model.DayGroup {
	groups := []model.DayGroup{}
	for _, c := range clients {
		n := len(groups)
		if n == 0 || groups[n-1].Date != c.Date {
			groups = append(groups, model.DayGroup{
				Date:    c.Date,
				Label:   DateLabel(c.Date, c.Date == today, locale),
				IsToday: c.Date == today,
			})
			n++
		}
		groups[n-1].Clients = append(groups[n-1].Clients, c)
	}
	return groups
}
