package instance

import "strings"

// ParseObjective parses an objective string per spec §6: "makespan",
// "total-flow-time"/"tft", "throughput", "total-tardiness"/"tt", accepting
// case and space/underscore variants (e.g. "Total Flow Time", "total_flow_time").
func ParseObjective(s string) (Objective, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)

	switch norm {
	case "makespan":
		return Makespan, nil
	case "total-flow-time", "tft":
		return TotalFlowTime, nil
	case "throughput":
		return Throughput, nil
	case "total-tardiness", "tt":
		return TotalTardiness, nil
	default:
		return 0, ErrInvalidArgument
	}
}
