package appliedmotion

import "sort"

var alarmCodes = map[uint16]string{
	0x0000: "No alarms",
	0x0001: "Position Limit",
	0x0002: "CCW Limit",
	0x0004: "CW Limit",
	0x0008: "Over Temp",
	0x0010: "Internal Voltage",
	0x0020: "Over Voltage",
	0x0040: "Under Voltage",
	0x0080: "Over Current",
	0x0100: "Open Motor Winding",
	0x0200: "Bad Encoder",
	0x0400: "Comm Error",
	0x0800: "Bad Flash",
	0x1000: "No Move",
	0x4000: "Blank Q Segment",
}

var statusCodes = map[uint16]string{
	0x0000: "Motor disabled",
	0x0001: "Motor enabled and in position",
	0x0002: "Sampling (for Quick Tuner)",
	0x0004: "Drive Fault (check Alarm Code)",
	0x0008: "In Position (motor is in position)",
	0x0010: "Moving (motor is moving)",
	0x0020: "Jogging (currently in jog mode)",
	0x0040: "Stopping (in the process of stopping from a stop command)",
	0x0080: "Waiting (for an input; executing a WI command)",
	0x0100: "Saving (parameter data is being saved)",
	0x0200: "Alarm present (check Alarm Code)",
	0x0400: "Homing (executing an SH command)",
	0x0800: "Waiting (for time; executing a WD or WT command)",
	0x1000: "Wizard running (Timing Wizard is running)",
	0x2000: "Checking encoder (Timing Wizard is running)",
	0x4000: "Q Program is running",
	0x8000: "Initializing (happens at power up)",
}

const statusMoving = 0x0010

// stepsPerTurn maps the microstep resolution setting to the steps of a full
// motor turn. Setting 2 does not exist.
var stepsPerTurn = map[int]int{
	0:  200,
	1:  400,
	3:  2000,
	4:  5000,
	5:  10000,
	6:  12800,
	7:  18000,
	8:  20000,
	9:  21600,
	10: 25000,
	11: 25400,
	12: 25600,
	13: 36000,
	14: 50000,
	15: 50800,
}

// MicrostepCodes returns the supported microstep settings in ascending order.
func MicrostepCodes() []int {
	codes := make([]int, 0, len(stepsPerTurn))
	for c := range stepsPerTurn {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// decodeBits names every set bit of word. A zero word has its own name.
func decodeBits(word uint16, table map[uint16]string) []string {
	if word == 0 {
		return []string{table[0]}
	}

	var names []string
	for bit := uint16(1); bit != 0; bit <<= 1 {
		if word&bit == 0 {
			continue
		}
		if name, ok := table[bit]; ok {
			names = append(names, name)
		}
	}
	return names
}
