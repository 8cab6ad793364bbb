// Command metarcsv converts captured METAR report pages into CSV files.
//
// Usage:
//
//	metarcsv parse --station RCKU --out-dir data page.txt
//	metarcsv run sites.yaml
//	metarcsv validate sites.yaml
package main

import (
	"os"

	"github.com/couchcryptid/metar-etl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
