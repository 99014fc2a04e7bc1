package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gowso/bizsites/pkg/backend"
	"github.com/gowso/bizsites/pkg/config"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type provisionOnceCommand struct{}

// Execute runs the workflow once and prints the run summary. Row failures are part of the summary; only a run
// that could not start or aborted makes the command fail.
func (p *provisionOnceCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	cfg, err := config.FromCLI(c)
	if err != nil {
		return err
	}

	workflow, err := backend.BuildWorkflow(ctx, cfg, gormConfig(c))
	if err != nil {
		return err
	}

	summary, err := workflow.Run(ctx)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"command": "provision",
		"run_id":  summary.RunID,
	}).Infof("Businesses provisioned: %d, failed: %d", summary.Successful, summary.Failed)

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func provisionCommand() *cli.Command {
	cmd := provisionOnceCommand{}

	return &cli.Command{
		Name:   "provision",
		Usage:  "provision every pending business once and print the run summary",
		Action: cmd.Execute,
		Flags:  append(config.Flags(), GlobalFlags()...),
		Before: Before,
	}
}
