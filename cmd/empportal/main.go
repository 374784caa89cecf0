package main

import (
	"fmt"
	"os"

	"github.com/phillip-england/empportal/internal/portalcli"
)

func main() {
	if err := portalcli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "empportal:", err)
		os.Exit(1)
	}
}
