// denguewatch is the command-line client for a denguewatch server.
//
// Usage:
//
//	denguewatch config set-server http://localhost:8080
//	denguewatch records list --search manila
//	denguewatch records add --location Cebu --cases 12 --deaths 0 --date 2024-03-01 --region "Central Visayas"
//	denguewatch import cases.csv --policy lenient --dry-run
//	denguewatch stats regions
//	denguewatch chart line --mode yearly --year 2024
//	denguewatch doctor
package main

import (
	"fmt"
	"os"

	"github.com/denguewatch/denguewatch/cmd/denguewatch/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
