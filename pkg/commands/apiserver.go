package commands

import (
	"context"

	"github.com/gowso/bizsites/pkg/apiserver"
	"github.com/gowso/bizsites/pkg/backend"
	"github.com/gowso/bizsites/pkg/config"
	"github.com/gowso/bizsites/pkg/version"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	log := logrus.WithField("command", "api-server")

	log.Infof("version: %v", version.Get())

	cfg, err := config.FromCLI(c)
	if err != nil {
		return err
	}

	back, err := backend.Build(ctx, cfg, gormConfig(c))
	if err != nil {
		return err
	}

	apiServer := apiserver.NewAPIServer(ctx, log, cfg.Port, cfg.AllowedOrigins, cfg.ProvisionTokenHash)

	return apiServer.Start(back)
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"BIZSITES_PORT", "PORT"},
			Value:   8080,
		},
	}

	return &cli.Command{
		Name:   "api-server",
		Usage:  "serve business pages, lookups and the provisioning trigger",
		Action: cmd.Execute,
		Flags:  append(append(flags, config.Flags()...), GlobalFlags()...),
		Before: Before,
	}
}
