package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "tickerbrief",
		Short: "Stock analysis report generator",
	}

	root.AddCommand(serveCMD(), reportCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
