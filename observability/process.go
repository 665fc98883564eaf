package observability

// ProcessStatus is the state of the process as reported by the OS.
type ProcessStatus string

const (
	Running  ProcessStatus = "RUNNING"
	Sleeping ProcessStatus = "SLEEP"
	Stopped  ProcessStatus = "STOP"
	Idle     ProcessStatus = "IDLE"
	Zombie   ProcessStatus = "ZOMBIE"
	Waiting  ProcessStatus = "WAIT"
	Locked   ProcessStatus = "LOCK"
	Unknown  ProcessStatus = "UNKNOWN"
)

// ToStatus maps the one letter status of gopsutil.
func ToStatus(status string) ProcessStatus {
	switch status {
	case "R":
		return Running
	case "S":
		return Sleeping
	case "T":
		return Stopped
	case "I":
		return Idle
	case "Z":
		return Zombie
	case "W":
		return Waiting
	case "L":
		return Locked
	default:
		return Unknown
	}
}
