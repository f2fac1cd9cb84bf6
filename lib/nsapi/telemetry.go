package nsapi

import (
	"nstools/lib/restyutil"
	"nstools/lib/telemetry"
)

var tracer = telemetry.Tracer("nstools.lib.nsapi")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput sets where clients created afterwards dump
// their http exchanges in debug mode.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
