// Command climatevalue runs incremental ingestion and correlation reports.
package main

import (
	"os"

	"github.com/roach88/climatevalue/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand()))
}
