package model

import (
	"fmt"
	"strings"
)

// Mode selects the active source format for a session. It decides both which
// files are accepted at ingestion and which decoder converts them.
type Mode string

const (
	ModeSVG  Mode = "svg"
	ModeHEIC Mode = "heic"
)

// ParseMode converts user or config input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSVG:
		return ModeSVG, nil
	case ModeHEIC:
		return ModeHEIC, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}

func (m Mode) String() string {
	return string(m)
}
