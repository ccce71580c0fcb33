package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownPriority is returned when a number or name does not map to a priority level.
var ErrUnknownPriority = errors.New("unknown priority")

// Priority is the urgency level of a message. Valid values are 1 (min) through 5 (max).
// The zero value means unset and is sent as PriorityDefault.
type Priority uint8

// Priority levels understood by the server.
const (
	PriorityMin     Priority = 1
	PriorityLow     Priority = 2
	PriorityDefault Priority = 3
	PriorityHigh    Priority = 4
	PriorityMax     Priority = 5
)

var priorityNames = map[Priority]string{
	PriorityMin:     "min",
	PriorityLow:     "low",
	PriorityDefault: "default",
	PriorityHigh:    "high",
	PriorityMax:     "max",
}

// ParsePriority maps a case-sensitive priority name to its level.
// "urgent" is accepted as an alias for max.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "min":
		return PriorityMin, nil
	case "low":
		return PriorityLow, nil
	case "default":
		return PriorityDefault, nil
	case "high":
		return PriorityHigh, nil
	case "max", "urgent":
		return PriorityMax, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

// PriorityFromInt maps 1..5 to a priority level.
func PriorityFromInt(n int) (Priority, error) {
	if n < int(PriorityMin) || n > int(PriorityMax) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPriority, n)
	}
	return Priority(n), nil
}

// OrDefault returns PriorityDefault for an unset priority and p otherwise.
func (p Priority) OrDefault() Priority {
	if p == 0 {
		return PriorityDefault
	}
	return p
}

// Valid reports whether p is one of the five defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// String returns the canonical name of p.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(p)) + ")"
}

// MarshalJSON always emits the numeric level; the server does not accept names here.
func (p Priority) MarshalJSON() ([]byte, error) {
	p = p.OrDefault()
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriority, int(p))
	}
	return []byte(strconv.Itoa(int(p))), nil
}

// UnmarshalJSON accepts either a JSON number or a JSON string name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		v, err := ParsePriority(name)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownPriority, data)
	}
	v, err := PriorityFromInt(n)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
