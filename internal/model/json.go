package model

import "encoding/json"

// clientJSON mirrors Client with placeId as a nullable string so persisted
// snapshots keep `"placeId": null` for clients without one.
type clientJSON struct {
    ID       string    `json:"id"`
    Name     string    `json:"name"`
    Address  string    `json:"address"`
    Date     string    `json:"date"`
    Time     string    `json:"time"`
    Contact  string    `json:"contact"`
    PlaceID  *string   `json:"placeId"`
    Location *GeoPoint `json:"location"`
}

func (c Client) MarshalJSON() ([]byte, error) {
    out := clientJSON{ID: c.ID, Name: c.Name, Address: c.Address, Date: c.Date, Time: c.Time, Contact: c.Contact, Location: c.Location}
    if c.PlaceID != "" {
        pid := c.PlaceID
        out.PlaceID = &pid
    }
    return json.Marshal(out)
}

func (c *Client) UnmarshalJSON(b []byte) error {
    var in clientJSON
    if err := json.Unmarshal(b, &in); err != nil {
        return err
    }
    *c = Client{ID: in.ID, Name: in.Name, Address: in.Address, Date: in.Date, Time: in.Time, Contact: in.Contact, Location: in.Location}
    if in.PlaceID != nil {
        c.PlaceID = *in.PlaceID
    }
    return nil
}
