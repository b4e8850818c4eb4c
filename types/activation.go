package types

// Vote is a validator's signal on a proposed protocol upgrade, carried in
// block proposals and tallied by the activation manager. The zero value is
// VoteAbsent: validators opt in to upgrades explicitly.
type Vote uint8

const (
	// VoteAbsent is an explicit abstention. It counts as participation but
	// contributes to the quorum the same way a nay does.
	VoteAbsent Vote = iota
	// VoteAye signals support for the upgrade.
	VoteAye
	// VoteNay signals opposition while still being counted in the voting
	// statistics.
	VoteNay
)

func (v Vote) String() string {
	switch v {
	case VoteAye:
		return "aye"
	case VoteNay:
		return "nay"
	case VoteAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// RuntimeVersion identifies a protocol capability level. Major bumps are
// breaking (hard fork), minor bumps are not.
type RuntimeVersion struct {
	Major uint16
	Minor uint16
}

func NewRuntimeVersion(major, minor uint16) RuntimeVersion {
	return RuntimeVersion{Major: major, Minor: minor}
}

// Compare orders versions lexicographically: major first, minor as the
// tiebreak. It returns -1, 0 or 1.
func (v RuntimeVersion) Compare(o RuntimeVersion) int {
	switch {
	case v.Major < o.Major:
		return -1
	case v.Major > o.Major:
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	default:
		return 0
	}
}

func (v RuntimeVersion) Less(o RuntimeVersion) bool {
	return v.Compare(o) < 0
}
