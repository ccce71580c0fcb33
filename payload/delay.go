package payload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Delay schedules delivery on the server side. The value is passed through
// untouched: either a relative expression such as "30m" or "tomorrow, 10am",
// or a Unix timestamp.
type Delay struct {
	value string
}

// DelayString wraps a free-form delay expression.
func DelayString(expr string) Delay {
	return Delay{value: expr}
}

// DelayUnix wraps a Unix timestamp in seconds.
func DelayUnix(ts int64) Delay {
	return Delay{value: strconv.FormatInt(ts, 10)}
}

// DelayUntil delivers the message at t.
func DelayUntil(t time.Time) Delay {
	return DelayUnix(t.Unix())
}

// String returns the wire value.
func (d Delay) String() string {
	return d.value
}

// IsZero reports whether no delay is set.
func (d Delay) IsZero() bool {
	return d.value == ""
}

// MarshalJSON emits the delay as a JSON string in both representations.
func (d Delay) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

// UnmarshalJSON accepts a JSON string or a JSON number (Unix timestamp).
func (d *Delay) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &d.value)
	}
	var ts int64
	if err := json.Unmarshal(data, &ts); err != nil {
		return fmt.Errorf("delay must be a string or a unix timestamp: %w", err)
	}
	d.value = strconv.FormatInt(ts, 10)
	return nil
}
