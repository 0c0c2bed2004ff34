package timer

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultDuration — длительность по умолчанию для нераспознанных значений.
const DefaultDuration = 300 * time.Millisecond

// durationPattern — "<целое>ms" или "<целое>s".
var durationPattern = regexp.MustCompile(`^(\d+)(m?s)$`)

// Duration — распознанная длительность.
type Duration struct {
	// Length — длительность.
	Length time.Duration

	// Text — текстовая форма ("300ms", "1s").
	Text string
}

// ParseDuration распознаёт длительность в свободной форме.
//
//	ParseDuration(1000)     // 1s, "1000ms"
//	ParseDuration(1.5)      // 1.5ms, "1.5ms"
//	ParseDuration("1s")     // 1s, "1s"
//	ParseDuration("250ms")  // 250ms, "250ms"
//	ParseDuration("soon")   // 300ms, "300ms"
//
// Числа трактуются как миллисекунды, дробная часть сохраняется. Всё нераспознанное даёт DefaultDuration.
func ParseDuration(v any) Duration {
	switch n := v.(type) {
	case int:
		return millis(int64(n))
	case int64:
		return millis(n)
	case float64:
		return Duration{
			Length: time.Duration(n * float64(time.Millisecond)),
			Text:   strconv.FormatFloat(n, 'f', -1, 64) + "ms",
		}
	case time.Duration:
		return millis(n.Milliseconds())
	case string:
		m := durationPattern.FindStringSubmatch(n)
		if m == nil {
			break
		}
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			break
		}
		factor := time.Millisecond
		if m[2] == "s" {
			factor = time.Second
		}
		return Duration{Length: time.Duration(value) * factor, Text: n}
	}

	return Duration{Length: DefaultDuration, Text: "300ms"}
}

func millis(ms int64) Duration {
	return Duration{
		Length: time.Duration(ms) * time.Millisecond,
		Text:   strconv.FormatInt(ms, 10) + "ms",
	}
}
