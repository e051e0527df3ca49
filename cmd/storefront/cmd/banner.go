package cmd

import (
	"fmt"
	"io"
)

const banner = `
  ____  _                  __                 _
 / ___|| |_ ___  _ __ ___ / _|_ __ ___  _ __ | |_
 \___ \| __/ _ \| '__/ _ \ |_| '__/ _ \| '_ \| __|
  ___) | || (_) | | |  __/  _| | | (_) | | | | |_
 |____/ \__\___/|_|  \___|_| |_|  \___/|_| |_|\__|

`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  In-memory storefront - Version %s\x1b[0m\n\n", Version)
}
