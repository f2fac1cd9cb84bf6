package dump

import (
	"sync"

	"nstools/lib/restyutil"
	"nstools/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("nstools.lib.dump")
var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

var defaultClient = sync.OnceValue(func() *resty.Client {
	client := resty.New()
	client.SetHeader("User-Agent", "nstools dump reader")
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	return client
})
