package main

import (
	"nstools/cmd/nstools/commands"
	"nstools/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
