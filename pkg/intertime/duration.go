package intertime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so TTLs can travel as human-readable strings
// ("1h30m", "500ms") in JSON, query strings and environment variables.
//
// Bare JSON numbers are read as whole seconds, the unit cache servers use:
//
//	{"ttl": "30s"}  // 30 seconds
//	{"ttl": 30}     // 30 seconds
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var seconds int64
	if err := json.Unmarshal(b, &seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("intertime: duration must be a string or whole seconds: %w", err)
	}

	return d.UnmarshalText([]byte(s))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalText parses the formats accepted by time.ParseDuration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
