package commands

import (
	"github.com/gowso/bizsites/pkg/db"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func GetCommands() []*cli.Command {
	return []*cli.Command{
		serverCommand(),
		provisionCommand(),
		exportCommand(),
		tokenCommand(),
		versionCommand(),
	}
}

func gormConfig(c *cli.Context) *gorm.Config {
	return &gorm.Config{
		Logger: db.NewLogger(c.String("log-level")),
	}
}
