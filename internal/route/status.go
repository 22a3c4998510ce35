package route

import "strings"

// onSchedule lists upstream status strings meaning the service runs as planned.
var onSchedule = map[string]bool{
	"ON TIME":     true,
	"ON SCHEDULE": true,
	"ONTIME":      true,
}

// Classify derives a display status. An explicit upstream status always wins:
// on-schedule values become Active and anything else passes through verbatim.
// Without one, the position in the fetch batch decides, so the soonest
// departures are emphasised.
func Classify(upstream string, index int, fallbackPath bool) Status {
	upstream = strings.TrimSpace(upstream)
	if upstream != "" {
		if onSchedule[strings.ToUpper(upstream)] {
			return StatusActive
		}
		return Status(upstream)
	}

	switch {
	case index < 3:
		return StatusActive
	case index < 5 && fallbackPath:
		return StatusPopular
	case index < 12:
		return StatusActive
	default:
		return StatusUpcoming
	}
}
