package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-gin-marketplace/internal/app"
	"go-gin-marketplace/internal/core/config"
	"go-gin-marketplace/internal/core/logger"
	"go-gin-marketplace/internal/repo"
)

// opener 按配置路径打开依赖；测试替换为内存库
type opener func(ctx context.Context, cfgPath string) (*app.App, func(), error)

func defaultOpener(ctx context.Context, cfgPath string) (*app.App, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	log, cleanup := logger.New(cfg.Log)
	// CLI 自己负责迁移
	cfg.DB.AutoMigrate = false
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, func() { a.Close(); cleanup() }, nil
}

type cli struct {
	open    opener
	out     io.Writer
	cfgPath string
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out}
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Marketplace maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	root.SetOut(out)

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the users and listings tables",
			Args:  cobra.NoArgs,
			RunE:  c.withApp(c.runMigrate),
		},
		&cobra.Command{
			Use:   "seed [file.yaml]",
			Short: "Load users and listings from a YAML seed file",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withApp(c.runSeed),
		},
		c.userCmd(),
	)
	return root
}

// withApp 打开依赖后执行子命令，结束时释放
func (c *cli) withApp(run func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := c.open(cmd.Context(), c.cfgPath)
		if err != nil {
			return err
		}
		defer closeFn()
		return run(cmd, a, args)
	}
}

func (c *cli) runMigrate(_ *cobra.Command, a *app.App, _ []string) error {
	if err := repo.AutoMigrate(a.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(c.out, "migrated: users, listings")
	return nil
}
