package models

import "strings"

// ShipmentStatus is the carrier-neutral state of a parcel.
// UNAVAILABLE is the zero value and means "no reliable data".
type ShipmentStatus int

const (
	StatusUnavailable ShipmentStatus = iota
	StatusLabelCreated
	StatusInTransit
	StatusOutForDelivery
	StatusDeliveryAttempted
	StatusReturnedToSender
	StatusException
	StatusDelivered
)

var statusNames = [...]string{
	StatusUnavailable:       "UNAVAILABLE",
	StatusLabelCreated:      "LABEL_CREATED",
	StatusInTransit:         "IN_TRANSIT",
	StatusOutForDelivery:    "OUT_FOR_DELIVERY",
	StatusDeliveryAttempted: "DELIVERY_ATTEMPTED",
	StatusReturnedToSender:  "RETURNED_TO_SENDER",
	StatusException:         "EXCEPTION",
	StatusDelivered:         "DELIVERED",
}

func (s ShipmentStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return statusNames[StatusUnavailable]
	}
	return statusNames[s]
}

// ParseStatus is the inverse of String. Unknown names map to UNAVAILABLE.
func ParseStatus(name string) ShipmentStatus {
	for i, n := range statusNames {
		if n == name {
			return ShipmentStatus(i)
		}
	}
	return StatusUnavailable
}

// MarshalText encodes the status by name in JSON payloads.
func (s ShipmentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ShipmentStatus) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// StatusTable maps a carrier's raw event code to a normalized status.
type StatusTable map[string]ShipmentStatus

// Resolve returns IN_TRANSIT for codes the table does not know:
// an event we cannot classify still proves the parcel is moving.
func (t StatusTable) Resolve(code string) ShipmentStatus {
	if s, ok := t[strings.TrimSpace(code)]; ok {
		return s
	}
	return StatusInTransit
}

// ReclassifyAttempt turns a generic exception into DELIVERY_ATTEMPTED when the
// carrier label says a delivery was attempted.
func ReclassifyAttempt(s ShipmentStatus, label string) ShipmentStatus {
	if s == StatusException && strings.Contains(strings.ToUpper(label), "DELIVERY ATTEMPT") {
		return StatusDeliveryAttempted
	}
	return s
}
