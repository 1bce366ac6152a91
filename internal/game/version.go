package game

import (
	"strconv"
	"strings"
)

// VersionKind classifies what is installed. Dev and Invalid builds are
// never auto-updated.
type VersionKind int

const (
	VersionInvalid VersionKind = iota
	VersionRelease
	VersionBeta
	VersionDev
)

func (k VersionKind) String() string {
	switch k {
	case VersionRelease:
		return "Release"
	case VersionBeta:
		return "Beta"
	case VersionDev:
		return "Dev"
	default:
		return "Invalid"
	}
}

const devVersionMarker = "@project-version@"

// ParseVersion encodes a version string into a monotonically comparable
// integer. Release versions `vMAJ.MIN[.PATCH]` weigh the major component by
// 10000 and the minor by 100; beta versions `NXM` weigh the leading number
// by 1000. Anything else is Invalid with code 0.
func ParseVersion(s string) (VersionKind, int64) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return VersionInvalid, 0
	case s == devVersionMarker:
		return VersionDev, -1
	case len(s) > 1 && s[1] == 'X':
		parts := strings.Split(s, "X")
		if len(parts) != 2 {
			return VersionInvalid, 0
		}
		major, err1 := strconv.ParseInt(parts[0], 10, 64)
		minor, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil || !allDigits(parts) {
			return VersionInvalid, 0
		}
		return VersionBeta, major*1000 + minor
	case s[0] == 'v':
		parts := strings.Split(s[1:], ".")
		if !allDigits(parts) {
			return VersionInvalid, 0
		}
		switch len(parts) {
		case 2:
			major, _ := strconv.ParseInt(parts[0], 10, 64)
			minor, _ := strconv.ParseInt(parts[1], 10, 64)
			return VersionRelease, major*10000 + minor*100
		case 3:
			major, _ := strconv.ParseInt(parts[0], 10, 64)
			minor, _ := strconv.ParseInt(parts[1], 10, 64)
			patch, _ := strconv.ParseInt(parts[2], 10, 64)
			return VersionRelease, major*10000 + minor*100 + patch
		default:
			return VersionInvalid, 0
		}
	default:
		return VersionInvalid, 0
	}
}

func allDigits(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
