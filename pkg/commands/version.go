package commands

import (
	"fmt"

	"github.com/gowso/bizsites/pkg/version"
	"github.com/urfave/cli/v2"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version",
		Action: func(c *cli.Context) error {
			fmt.Printf("%s\n", version.Get())
			return nil
		},
	}
}
