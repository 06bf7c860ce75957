package config

// Role selects which loop a process runs.
type Role string

const (
	RoleControl Role = "control"
	RoleNoise   Role = "noise"
)

// Mode selects the channel backend.
type Mode string

const (
	// ModeNormal drives an EPICS process variable.
	ModeNormal Mode = "normal"
	// ModeDebug drives the shared debug file.
	ModeDebug Mode = "debug"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeNormal, ModeDebug:
		return true
	default:
		return false
	}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleControl, RoleNoise:
		return true
	default:
		return false
	}
}
