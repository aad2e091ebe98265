package opt

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"visitroute/internal/model"
)

// Locale selects the wording of human-facing durations.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleZH Locale = "zh"
)

const mapsDirBase = "https://www.google.com/maps/dir/?api=1"

// Summarize totals the legs and builds the navigation deep link for ordered.
// A nil origin falls back to the first leg's start location, then to the
// maps "current location" marker.
func Summarize(legs []model.RouteLeg, ordered []model.Client, origin *model.GeoPoint, locale Locale) model.RouteSummary {
	meters, seconds := 0, 0
	for _, l := range legs {
		meters += l.DistanceMeters
		seconds += l.DurationSeconds
	}
	if origin == nil && len(legs) > 0 && legs[0].StartLocation != nil {
		o := *legs[0].StartLocation
		origin = &o
	}
	return model.RouteSummary{
		DistanceKm:   fmt.Sprintf("%.1f", float64(meters)/1000),
		DurationText: FormatDuration(seconds, locale),
		MapsURL:      MapsURL(ordered, origin),
	}
}

// FormatDuration renders seconds as "H hours M minutes" in the given locale.
// Zero yields an explicit unknown marker.
func FormatDuration(seconds int, locale Locale) string {
	if seconds <= 0 {
		if locale == LocaleZH {
			return "未知时长"
		}
		return "unknown duration"
	}
	hours := seconds / 3600
	minutes := int(math.Round(float64(seconds%3600) / 60))

	var h, m string
	if locale == LocaleZH {
		h = fmt.Sprintf("%d 小时", hours)
		m = fmt.Sprintf("%d 分钟", minutes)
	} else {
		h = plural(hours, "hour")
		m = plural(minutes, "minute")
	}
	switch {
	case hours > 0 && minutes > 0:
		return h + " " + m
	case hours > 0:
		return h
	default:
		return m
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// MapsURL builds a Google Maps driving deep link that avoids tolls and
// visits ordered in sequence. Returns "" when ordered is empty.
func MapsURL(ordered []model.Client, origin *model.GeoPoint) string {
	if len(ordered) == 0 {
		return ""
	}
	originParam := "My+Location"
	if origin != nil {
		originParam = formatPoint(*origin)
	}
	dest := ordered[len(ordered)-1]
	waypoints := make([]string, 0, len(ordered)-1)
	for _, c := range ordered[:len(ordered)-1] {
		waypoints = append(waypoints, stopParam(c))
	}

	var b strings.Builder
	b.WriteString(mapsDirBase)
	b.WriteString("&origin=" + originParam)
	b.WriteString("&destination=" + stopParam(dest))
	b.WriteString("&travelmode=driving&dir_action=navigate&avoid=tolls")
	if len(waypoints) > 0 {
		b.WriteString("&waypoints=" + strings.Join(waypoints, "%7C"))
	}
	return b.String()
}

func stopParam(c model.Client) string {
	if c.Location != nil {
		return formatPoint(*c.Location)
	}
	return escapeComponent(c.Address)
}

func formatPoint(p model.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// escapeComponent percent-encodes like a URI component (spaces become %20).
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// OrderText is the plain-text visit order used by the copy action.
func OrderText(ordered []model.Client) string {
	lines := make([]string, len(ordered))
	for i, c := range ordered {
		lines[i] = fmt.Sprintf("%d. %s - %s", i+1, c.Name, c.Address)
	}
	return strings.Join(lines, "\n")
}

// SummaryLines lists the ordered stops for display.
func SummaryLines(ordered []model.Client) []string {
	lines := make([]string, len(ordered))
	for i, c := range ordered {
		lines[i] = fmt.Sprintf("%d. %s ｜ %s", i+1, c.Name, c.Address)
	}
	return lines
}
