// Package telemetry turns room controller status lines into RoomStatus
// snapshot updates.
package telemetry

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Reading holds the fields recovered from one status line. Nil pointers are
// fields the line did not yield; the upsert leaves those unchanged.
type Reading struct {
	TempC     *float64
	Humidity  *float64
	ClimateOn *bool
	State     *string
	LightOn   *bool
	Mode      *string // A/1/0, reported but not persisted
}

// ErrNoUsableFields marks a line that produced neither a temperature nor a
// humidity value. Such lines are discarded with a warning.
var ErrNoUsableFields = errors.New("status line yielded no usable fields")

// Controller status line, e.g.:
//
//	TEMP:25.3C HUM:41.0% ENABLE:1 STATE:COOLING LIGHT:ON MODE:A
var strictRe = regexp.MustCompile(
	`(?i)TEMP:([-\d.]+)C\s+HUM:([-\d.]+)%.*?ENABLE:(\d).*?STATE:(\w+).*?LIGHT:(ON|OFF)(?:.*?MODE:([A10]))?`)

// Parse extracts a Reading from a raw controller line. A strict pattern
// match is attempted first; on failure each token is scanned independently,
// keeping whatever the noisy serial channel delivered intact.
func Parse(line string) (Reading, error) {
	line = strings.TrimSpace(line)

	if m := strictRe.FindStringSubmatch(line); m != nil {
		r := Reading{}
		if t, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.TempC = &t
		}
		if h, err := strconv.ParseFloat(m[2], 64); err == nil {
			r.Humidity = &h
		}
		enabled := m[3] == "1"
		r.ClimateOn = &enabled
		state := strings.ToUpper(m[4])
		r.State = &state
		lightOn := strings.EqualFold(m[5], "ON")
		r.LightOn = &lightOn
		if m[6] != "" {
			mode := strings.ToUpper(m[6])
			r.Mode = &mode
		}
		if r.TempC == nil && r.Humidity == nil {
			return Reading{}, ErrNoUsableFields
		}
		return r, nil
	}

	r := scanTokens(line)
	if r.TempC == nil && r.Humidity == nil {
		return Reading{}, ErrNoUsableFields
	}
	return r, nil
}

// scanTokens is the best-effort fallback: each field is recovered on its
// own, so a corrupted token does not take its neighbors down with it.
func scanTokens(line string) Reading {
	var r Reading
	for _, tok := range strings.Fields(line) {
		key, val, ok := strings.Cut(tok, ":")
		if !ok || val == "" {
			continue
		}
		switch strings.ToUpper(key) {
		case "TEMP":
			if t, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToUpper(val), "C"), 64); err == nil {
				r.TempC = &t
			}
		case "HUM":
			if h, err := strconv.ParseFloat(strings.TrimSuffix(val, "%"), 64); err == nil {
				r.Humidity = &h
			}
		case "ENABLE":
			switch val {
			case "0", "1":
				enabled := val == "1"
				r.ClimateOn = &enabled
			}
		case "STATE":
			state := strings.ToUpper(val)
			r.State = &state
		case "LIGHT":
			switch strings.ToUpper(val) {
			case "ON", "OFF":
				lightOn := strings.EqualFold(val, "ON")
				r.LightOn = &lightOn
			}
		case "MODE":
			switch strings.ToUpper(val) {
			case "A", "0", "1":
				mode := strings.ToUpper(val)
				r.Mode = &mode
			}
		}
	}
	return r
}
