package vcr

import (
	"fmt"
	"strings"
)

// Mode decides when a Recorder calls through to the real transport.
type Mode int

const (
	// ModeReplay serves requests from the cassette only. A request with no
	// unconsumed match fails with ErrNoMatchingInteraction.
	ModeReplay Mode = iota
	// ModeRecord serves unconsumed matches from the cassette and records
	// everything else from the transport.
	ModeRecord
	// ModeOnce records when the cassette is empty at construction and
	// replays otherwise.
	ModeOnce
	// ModeNone always calls the transport and never touches the cassette.
	ModeNone
)

func (m Mode) String() string {
	switch m {
	case ModeReplay:
		return "replay"
	case ModeRecord:
		return "record"
	case ModeOnce:
		return "once"
	case ModeNone:
		return "none"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replay", "":
		return ModeReplay, nil
	case "record":
		return ModeRecord, nil
	case "once":
		return ModeOnce, nil
	case "none", "off", "passthrough":
		return ModeNone, nil
	}
	return ModeReplay, fmt.Errorf("unknown vcr mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
