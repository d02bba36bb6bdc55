package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/tturner/canusb/internal/lawicel"
)

// Form field keys.
const (
	fieldID       = "can_id"
	fieldDLC      = "can_dlc"
	fieldData     = "can_data"
	fieldExtended = "can_extended"
	fieldRemote   = "can_remote"
)

// SendDefaults pre-fills the send form.
type SendDefaults struct {
	ID       string
	DLC      string
	Data     string
	Extended bool
	Remote   bool
}

// NewSendForm builds the frame entry form. Field checks here are shape-only;
// ParseSendForm applies the full rules once every field is known.
func NewSendForm(d SendDefaults) *huh.Form {
	id, dlc, data := d.ID, d.DLC, d.Data
	extended, remote := d.Extended, d.Remote
	if dlc == "" {
		dlc = "8"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Extended ID").
				Description("29-bit identifier (8 hex characters).").
				Key(fieldExtended).
				Affirmative("Extended").
				Negative("Standard").
				Value(&extended),
			huh.NewInput().
				Title("CAN ID").
				Description("3 hex characters, or 8 when extended.").
				Key(fieldID).
				CharLimit(lawicel.ExtendedIDLen).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if !lawicel.IsValidHex(s, len(s)) || s == "" {
						return fmt.Errorf("hex characters only")
					}
					return nil
				}).
				Value(&id),
			huh.NewInput().
				Title("DLC").
				Description("Data length, 0-8.").
				Key(fieldDLC).
				CharLimit(1).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 || n > lawicel.MaxDLC {
						return fmt.Errorf("must be a number 0-8")
					}
					return nil
				}).
				Value(&dlc),
			huh.NewInput().
				Title("Data").
				Description("Hex bytes, spaces allowed. Ignored for remote requests.").
				Key(fieldData).
				Value(&data),
			huh.NewConfirm().
				Title("Remote request").
				Key(fieldRemote).
				Affirmative("RTR").
				Negative("Data").
				Value(&remote),
		),
	).WithShowHelp(true)
}

// ParseSendForm builds a SendCommand from a completed form.
func ParseSendForm(form *huh.Form) (lawicel.SendCommand, error) {
	extended := form.GetBool(fieldExtended)
	id := form.GetString(fieldID)
	dlc := form.GetString(fieldDLC)

	if form.GetBool(fieldRemote) {
		return lawicel.ParseRemoteCommand(id, dlc, extended)
	}
	return lawicel.ParseSendCommand(id, dlc, form.GetString(fieldData), extended)
}
