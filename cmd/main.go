package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamloop/teamloop/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "teamloop",
		Short: "teamloop",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewProcessCommand(), service.NewInitCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
