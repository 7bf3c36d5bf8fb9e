package hub

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DriverStatus is the installation state the hub reports for a driver.
type DriverStatus int

const (
	StatusUnknown DriverStatus = iota
	StatusNoArchive
	StatusDownloading
	StatusInstalled
	StatusFailure
)

var statusNames = map[DriverStatus]string{
	StatusUnknown:     "unknown",
	StatusNoArchive:   "no archive",
	StatusDownloading: "downloading",
	StatusInstalled:   "installed",
	StatusFailure:     "failure",
}

func (s DriverStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseDriverStatus maps a wire status string. Unrecognised values are
// StatusUnknown.
func ParseDriverStatus(s string) DriverStatus {
	for status, name := range statusNames {
		if name == s {
			return status
		}
	}
	return StatusUnknown
}

func (s DriverStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DriverStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		*s = StatusUnknown
		return nil //nolint:nilerr // non-string status is reported as unknown
	}
	*s = ParseDriverStatus(name)
	return nil
}

// DriverSummary is one driver running on the hub, as reported by GET /drivers.
// DriverID is kept as sent; hubs are expected to use UUIDs but a driver with
// any other id is still listed and streamable.
type DriverSummary struct {
	DriverID    string       `json:"driver_id"`
	DriverName  string       `json:"driver_name"`
	ArchiveHash *string      `json:"archive_hash"`
	Status      DriverStatus `json:"status"`
}

// UUID parses DriverID, reporting false when it is not a UUID.
func (d DriverSummary) UUID() (uuid.UUID, bool) {
	id, err := uuid.Parse(d.DriverID)
	return id, err == nil
}
