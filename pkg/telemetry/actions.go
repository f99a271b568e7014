package telemetry

type ActionCategory int

const (
	Building ActionCategory = iota
	Fuzzing
	Reporting
	Verifying
	Syncing
)

func (a ActionCategory) String() string {
	switch a {
	case Building:
		return "building"
	case Fuzzing:
		return "fuzzing"
	case Reporting:
		return "reporting"
	case Verifying:
		return "verifying"
	case Syncing:
		return "syncing"
	default:
		return "unknown"
	}
}
