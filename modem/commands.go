package modem

import (
	"fmt"
	"time"
)

// AT command literals. Bytes on the wire must match these exactly.
const (
	CmdEcho            = "ATE1\r\n"
	CmdBootMode        = "AT+UBMCONF=1\r\n"
	CmdRadioOff        = "AT+CFUN=4\r\n"
	CmdDefineContext   = "AT+CGDCONT=1,\"IP\",\"broadband\"\r\n"
	CmdDefaultContext  = "AT+UCGDFLT=1,\"IP\",\"broadband\"\r\n"
	CmdRadioOn         = "AT+CFUN=1\r\n"
	CmdPINStatus       = "AT+CPIN?\r\n"
	CmdOperator        = "AT+COPS?\r\n"
	CmdActivateContext = "AT+CGACT=1,1" // sent without a line ending
	CmdEnterCommand    = "AT!ENTERCND=\"A710\"\r\n"
	CmdUSBComposition  = "AT!USBCOMP=1,1,100D\r\n"
	CmdReset           = "AT!RESET\r\n"

	cmdImagePrefFormat = "AT!IMPREF=\"%s\"\r\n"
)

// EchoResponse is what a modem with echo enabled sends back for CmdEcho
const EchoResponse = "ATE1\r\r\n"

// RadioSettleTime is the pause after turning the NWK100 radio back on
const RadioSettleTime = 5 * time.Second

// Step is one command of a script
type Step struct {
	Command   []byte
	ReadLines int           // response lines consumed after the write
	Pause     time.Duration // wait before the next step
}

// Script is an ordered list of steps run against one session
type Script []Step

func step(cmd string, lines int) Step {
	return Step{Command: []byte(cmd), ReadLines: lines}
}

// NWK100Script returns the u-blox NWK100 configuration sequence
func NWK100Script() Script {
	radioOn := step(CmdRadioOn, 2)
	radioOn.Pause = RadioSettleTime

	return Script{
		step(CmdEcho, 2),
		step(CmdBootMode, 2),
		step(CmdRadioOff, 2),
		step(CmdDefineContext, 2),
		step(CmdDefaultContext, 2),
		radioOn,
		step(CmdPINStatus, 2),
		step(CmdOperator, 2),
		step(CmdActivateContext, 3),
	}
}

// NWK200Script returns the Sierra Wireless NWK200 sequence for provider.
// The final reset gets no response read; the modem drops off the bus.
func NWK200Script(provider Provider) Script {
	return Script{
		step(CmdEcho, 2),
		step(CmdEnterCommand, 2),
		step(CmdUSBComposition, 2),
		step(ImagePreferenceCommand(provider), 2),
		step(CmdReset, 0),
	}
}

// ImagePreferenceCommand builds the AT!IMPREF command for provider
func ImagePreferenceCommand(provider Provider) string {
	return fmt.Sprintf(cmdImagePrefFormat, string(provider))
}

// ScriptFor returns the script for variant. provider is ignored for NWK100.
func ScriptFor(variant Variant, provider Provider) Script {
	if variant == NWK200 {
		return NWK200Script(provider)
	}
	return NWK100Script()
}
