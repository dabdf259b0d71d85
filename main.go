package main

import (
	"relaybot/app/cmd"
	"relaybot/app/util/mylog"
)

func main() {
	mylog.Preinit()

	cmd.Execute()
}
