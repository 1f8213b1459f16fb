package targets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StationID is a POI id on the wire. Dispatch services send it either as
// a JSON number or a string.
type StationID string

func (s *StationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StationID(strings.TrimSpace(v))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("station must be a number or string: %w", err)
	}
	*s = StationID(n.String())
	return nil
}

// MarshalJSON writes integer ids as numbers and anything else as a string
func (s StationID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.Atoi(string(s)); err == nil && strconv.Itoa(n) == string(s) {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// Availability is the dispatch payload, {"station": 2}. A null or missing
// station means no target is active.
type Availability struct {
	Station *StationID `json:"station"`
}

// ID returns the station id and whether one is set
func (a Availability) ID() (string, bool) {
	if a.Station == nil || *a.Station == "" {
		return "", false
	}
	return string(*a.Station), true
}

// NewAvailability builds a payload for id; an empty id yields null
func NewAvailability(id string) Availability {
	if id == "" {
		return Availability{}
	}
	s := StationID(id)
	return Availability{Station: &s}
}
