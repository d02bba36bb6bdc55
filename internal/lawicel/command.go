package lawicel

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Adapter control commands, sent CR-terminated.
const (
	CmdFlush = ""
	CmdOpen  = "O"
	CmdClose = "C"
)

// bitrateCodes maps kbit/s to the SLCAN "Sn" setup command.
var bitrateCodes = map[int]string{
	10:   "S0",
	20:   "S1",
	50:   "S2",
	100:  "S3",
	125:  "S4",
	250:  "S5",
	500:  "S6",
	800:  "S7",
	1000: "S8",
}

// BitrateCommand returns the setup command for a CAN bitrate in kbit/s.
func BitrateCommand(kbps int) (string, error) {
	cmd, ok := bitrateCodes[kbps]
	if !ok {
		return "", fmt.Errorf("unsupported CAN bitrate %d kbit/s", kbps)
	}
	return cmd, nil
}

// Terminate appends the CR terminator expected by the adapter.
func Terminate(cmd string) []byte {
	out := make([]byte, 0, len(cmd)+1)
	out = append(out, cmd...)
	return append(out, CR)
}

// SendCommand is a validated request to transmit a CAN frame.
// Values are only produced by NewSendCommand and ParseSendCommand.
type SendCommand struct {
	ID       string
	DLC      int
	DataHex  string
	Extended bool
	Remote   bool
}

func (c SendCommand) prefix() byte {
	switch {
	case c.Extended && c.Remote:
		return 'R'
	case c.Extended:
		return 'T'
	case c.Remote:
		return 'r'
	default:
		return 't'
	}
}

// ValidationError describes a rejected send request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid CAN %s: %s", e.Field, e.Reason)
}

// IsValidHex reports whether s is exactly n hexadecimal characters.
func IsValidHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// NewSendCommand validates a data frame request.
func NewSendCommand(id string, dlc int, dataHex string, extended bool) (SendCommand, error) {
	if err := validateID(id, extended); err != nil {
		return SendCommand{}, err
	}
	if err := validateDLC(dlc); err != nil {
		return SendCommand{}, err
	}
	if !IsValidHex(dataHex, dlc*2) {
		return SendCommand{}, &ValidationError{
			Field:  "Data",
			Reason: fmt.Sprintf("Must be %d hex characters for DLC %d.", dlc*2, dlc),
		}
	}
	return SendCommand{ID: id, DLC: dlc, DataHex: dataHex, Extended: extended}, nil
}

// NewRemoteCommand validates a remote transmission request.
func NewRemoteCommand(id string, dlc int, extended bool) (SendCommand, error) {
	if err := validateID(id, extended); err != nil {
		return SendCommand{}, err
	}
	if err := validateDLC(dlc); err != nil {
		return SendCommand{}, err
	}
	return SendCommand{ID: id, DLC: dlc, Extended: extended, Remote: true}, nil
}

// ParseSendCommand validates raw form input. Surrounding whitespace is trimmed
// and all whitespace inside the data field is removed.
func ParseSendCommand(idText, dlcText, dataText string, extended bool) (SendCommand, error) {
	id := strings.TrimSpace(idText)
	dlc, err := strconv.Atoi(strings.TrimSpace(dlcText))
	if err != nil {
		if verr := validateID(id, extended); verr != nil {
			return SendCommand{}, verr
		}
		return SendCommand{}, &ValidationError{Field: "DLC", Reason: "Must be a number 0-8."}
	}
	data := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, dataText)
	return NewSendCommand(id, dlc, data, extended)
}

// ParseRemoteCommand is ParseSendCommand for remote transmission requests.
func ParseRemoteCommand(idText, dlcText string, extended bool) (SendCommand, error) {
	id := strings.TrimSpace(idText)
	dlc, err := strconv.Atoi(strings.TrimSpace(dlcText))
	if err != nil {
		if verr := validateID(id, extended); verr != nil {
			return SendCommand{}, verr
		}
		return SendCommand{}, &ValidationError{Field: "DLC", Reason: "Must be a number 0-8."}
	}
	return NewRemoteCommand(id, dlc, extended)
}

func validateID(id string, extended bool) error {
	n := StandardIDLen
	if extended {
		n = ExtendedIDLen
	}
	if !IsValidHex(id, n) {
		return &ValidationError{Field: "ID", Reason: fmt.Sprintf("Must be %d hex characters.", n)}
	}
	return nil
}

func validateDLC(dlc int) error {
	if dlc < 0 || dlc > MaxDLC {
		return &ValidationError{Field: "DLC", Reason: "Must be a number 0-8."}
	}
	return nil
}
