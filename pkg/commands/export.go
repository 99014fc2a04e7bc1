package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gowso/bizsites/pkg/backend"
	"github.com/gowso/bizsites/pkg/config"
	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/gowso/bizsites/pkg/subdomain"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type exportMergeCommand struct{}

func (e *exportMergeCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	stats, err := mergeIntoMaster(ctx, mergeOptions{
		master:   c.String("master"),
		inactive: c.String("inactive"),
		sources:  c.StringSlice("source"),
		domain:   c.String("domain"),
		dryRun:   c.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type mergeOptions struct {
	master   string
	inactive string
	sources  []string
	domain   string
	dryRun   bool
}

// mergeIntoMaster appends the new rows of every source to the master export, creating it with a header when it
// does not exist yet.
func mergeIntoMaster(ctx context.Context, opts mergeOptions) (recordstore.MergeStats, error) {
	log := logrus.WithField("command", "export merge")

	master, exists, err := readMaster(opts.master)
	if err != nil {
		return recordstore.MergeStats{}, err
	}

	var inactive []model.BusinessRecord
	if opts.inactive != "" {
		export, err := backend.OpenExport(ctx, opts.inactive)
		if err != nil {
			return recordstore.MergeStats{}, err
		}
		inactive = export.Records()
	}

	var sources [][]model.BusinessRecord
	for _, location := range opts.sources {
		export, err := backend.OpenExport(ctx, location)
		if err != nil {
			return recordstore.MergeStats{}, err
		}
		log.Debugf("read %d rows from %s", len(export.Records()), location)
		sources = append(sources, export.Records())
	}

	added, stats := recordstore.MergeExports(master, inactive, sources...)
	if opts.domain != "" {
		for i := range added {
			added[i].Subdomain = subdomain.FQDN(subdomain.LabelOf(added[i].Subdomain), opts.domain)
		}
	}

	log.WithFields(logrus.Fields{
		"read":       stats.Read,
		"unnamed":    stats.Unnamed,
		"inactive":   stats.Inactive,
		"duplicates": stats.Duplicates,
	}).Infof("%d new businesses for %s", stats.Added, opts.master)

	if opts.dryRun || len(added) == 0 {
		return stats, nil
	}

	f, err := os.OpenFile(opts.master, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return stats, fmt.Errorf("failed to open %s: %w", opts.master, err)
	}
	defer f.Close()

	if err := recordstore.WriteExport(f, added, !exists); err != nil {
		return stats, fmt.Errorf("failed to append to %s: %w", opts.master, err)
	}
	return stats, f.Close()
}

// readMaster reads the master export. A missing or empty file is an empty master that still needs a header.
func readMaster(path string) ([]model.BusinessRecord, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.Size() == 0 {
		return nil, false, nil
	}

	records, err := recordstore.ReadExport(f)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, true, nil
}

type exportImportCommand struct{}

func (e *exportImportCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	cfg, err := config.FromCLI(c)
	if err != nil {
		return err
	}

	export, err := backend.OpenExport(ctx, c.String("file"))
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.SQL.Dialect, cfg.SQL.DSN, gormConfig(c))
	if err != nil {
		return err
	}

	count, err := database.AddBusinesses(ctx, export.Records())
	if err != nil {
		return err
	}

	logrus.WithField("command", "export import").Infof("imported %d businesses from %s", count, c.String("file"))
	return nil
}

func exportCommand() *cli.Command {
	merge := exportMergeCommand{}
	imp := exportImportCommand{}

	return &cli.Command{
		Name:  "export",
		Usage: "maintain CSV exports of businesses",
		Subcommands: []*cli.Command{
			{
				Name:   "merge",
				Usage:  "append the new businesses of one or more exports to a master export",
				Action: merge.Execute,
				Before: Before,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "master",
						Usage:    "Master export the new rows are appended to; created when missing",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "source",
						Usage:    "Export to merge, a local path or s3://bucket/key; repeatable",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "inactive",
						Usage: "Export of businesses that must never be added",
					},
					&cli.StringFlag{
						Name:    "domain",
						Usage:   "Write new subdomains as full host names under this domain",
						EnvVars: []string{"DOMAIN"},
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be added without writing the master",
					},
				}, GlobalFlags()...),
			},
			{
				Name:   "import",
				Usage:  "load an export into the sql record store",
				Action: imp.Execute,
				Before: Before,
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Export to import, a local path or s3://bucket/key",
						Required: true,
					},
				}, config.Flags()...), GlobalFlags()...),
			},
		},
	}
}
