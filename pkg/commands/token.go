package commands

import (
	"fmt"

	"github.com/gowso/bizsites/pkg/rand"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

// tokenAction prints a new trigger token and the bcrypt hash to configure as --provision-token-hash.
func tokenAction(c *cli.Context) error {
	token, err := rand.Token(c.Int("length"))
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), c.Int("cost"))
	if err != nil {
		return err
	}

	fmt.Printf("token: %s\nhash:  %s\n", token, hash)
	return nil
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:   "token",
		Usage:  "generate a provisioning trigger token and its hash",
		Action: tokenAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "length",
				Value: 32,
			},
			&cli.IntFlag{
				Name:  "cost",
				Usage: "bcrypt cost",
				Value: bcrypt.DefaultCost,
			},
		},
	}
}
