package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func b(v bool) *bool         { return &v }
func str(v string) *string   { return &v }

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		line      string
		expected  Reading
		expectErr bool
	}{
		{
			name: "Full line with mode",
			line: "TEMP:25.3C HUM:41.0% ENABLE:1 STATE:COOLING LIGHT:ON MODE:A",
			expected: Reading{
				TempC: f64(25.3), Humidity: f64(41.0),
				ClimateOn: b(true), State: str("COOLING"), LightOn: b(true), Mode: str("A"),
			},
		},
		{
			name: "Full line without mode",
			line: "TEMP:24.1C HUM:48.0% ENABLE:1 STATE:COOLING LIGHT:ON",
			expected: Reading{
				TempC: f64(24.1), Humidity: f64(48.0),
				ClimateOn: b(true), State: str("COOLING"), LightOn: b(true),
			},
		},
		{
			name: "Disabled idle line",
			line: "TEMP:19.0C HUM:55.5% ENABLE:0 STATE:DISABLED LIGHT:OFF MODE:0",
			expected: Reading{
				TempC: f64(19.0), Humidity: f64(55.5),
				ClimateOn: b(false), State: str("DISABLED"), LightOn: b(false), Mode: str("0"),
			},
		},
		{
			name: "Negative temperature",
			line: "TEMP:-2.5C HUM:60.0% ENABLE:1 STATE:HEATING LIGHT:ON MODE:1",
			expected: Reading{
				TempC: f64(-2.5), Humidity: f64(60.0),
				ClimateOn: b(true), State: str("HEATING"), LightOn: b(true), Mode: str("1"),
			},
		},
		{
			name: "Leading noise falls back to token scan",
			line: "??\x02 TEMP:22.0C HUM:39.0% ENABLE:1 LIGHT:OFF",
			expected: Reading{
				TempC: f64(22.0), Humidity: f64(39.0),
				ClimateOn: b(true), LightOn: b(false),
			},
		},
		{
			name:     "Missing temperature still recovers humidity",
			line:     "HUM:48.0% ENABLE:1 STATE:COOLING LIGHT:ON",
			expected: Reading{Humidity: f64(48.0), ClimateOn: b(true), State: str("COOLING"), LightOn: b(true)},
		},
		{
			name:     "Corrupt humidity token does not take temperature down",
			line:     "TEMP:21.7C HUM:#ERR% ENABLE:1 STATE:IDLE LIGHT:OFF",
			expected: Reading{TempC: f64(21.7), ClimateOn: b(true), State: str("IDLE"), LightOn: b(false)},
		},
		{
			name:      "No usable fields",
			line:      "ENABLE:1 STATE:COOLING LIGHT:ON",
			expectErr: true,
		},
		{
			name:      "Empty line",
			line:      "",
			expectErr: true,
		},
		{
			name:      "Garbage line",
			line:      "OK",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reading, err := Parse(tc.line)
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrNoUsableFields)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, reading)
		})
	}
}
