// Command memcfg plans the memory channels of a simulated system.
package main

import (
	"github.com/sarchlab/memcfg/memcfg/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	if err := cmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
