package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"visitroute/internal/model"
)

// Header is the first row of the backup tab and of xlsx exports.
var Header = []string{"id", "name", "address", "date", "time", "contact", "placeId", "lat", "lng"}

// HeaderRow returns Header as a sheet row.
func HeaderRow() []interface{} {
	row := make([]interface{}, len(Header))
	for i, h := range Header {
		row[i] = h
	}
	return row
}

// ClientsToRows flattens clients into the nine-column layout. Missing
// optional values become empty cells.
func ClientsToRows(clients []model.Client) [][]interface{} {
	rows := make([][]interface{}, 0, len(clients))
	for _, c := range clients {
		var lat, lng interface{} = "", ""
		if c.Location != nil {
			lat, lng = c.Location.Lat, c.Location.Lng
		}
		rows = append(rows, []interface{}{c.ID, c.Name, c.Address, c.Date, c.Time, c.Contact, c.PlaceID, lat, lng})
	}
	return rows
}

// RowsToClients decodes rows in the same layout. Rows without id, name,
// address or date are skipped. A location is only set when both
// coordinates parse as finite numbers.
func RowsToClients(rows [][]interface{}) []model.Client {
	out := []model.Client{}
	for _, row := range rows {
		cell := func(i int) string {
			if i >= len(row) || row[i] == nil {
				return ""
			}
			return strings.TrimSpace(fmt.Sprint(row[i]))
		}
		c := model.Client{
			ID:      cell(0),
			Name:    cell(1),
			Address: cell(2),
			Date:    cell(3),
			Time:    cell(4),
			Contact: cell(5),
			PlaceID: cell(6),
		}
		if c.ID == "" || c.Name == "" || c.Address == "" || c.Date == "" {
			continue
		}
		lat, okLat := coord(row, 7)
		lng, okLng := coord(row, 8)
		if okLat && okLng {
			c.Location = &model.GeoPoint{Lat: lat, Lng: lng}
		}
		out = append(out, c)
	}
	return out
}

func coord(row []interface{}, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	var f float64
	switch v := row[i].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
