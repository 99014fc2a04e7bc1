package main

import (
	"errors"
	"io/fs"
	"os"
	"path"

	"github.com/gowso/bizsites/pkg/commands"
	"github.com/gowso/bizsites/pkg/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// log panics forces exit
			if _, ok := r.(*logrus.Entry); ok {
				os.Exit(1)
			}
			panic(r)
		}
	}()

	// A .env file in the working directory fills the environment before flags are parsed.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("failed to load .env: %v", err)
	}

	app := cli.NewApp()
	app.Name = path.Base(os.Args[0])
	app.Usage = "Provision and serve per-business subdomains"
	app.Version = version.Get().String()
	app.Authors = []*cli.Author{
		{
			Name:  "The GoWSO Dev Team",
			Email: "dev@gowso.online",
		},
	}

	app.Commands = commands.GetCommands()
	app.CommandNotFound = func(context *cli.Context, command string) {
		logrus.Fatalf("Command %s not found.", command)
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
