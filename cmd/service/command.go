package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/app/core/srv"
	v1 "github.com/teamloop/teamloop/app/logic/v1"
	"github.com/teamloop/teamloop/app/logic/v1/process"
	"github.com/teamloop/teamloop/pkg/realtime"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	// Add flags for generic options
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init api by given config")
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "realtime service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	installRealtime(app)
	process.NewProcess(app).Start()
	serve(app)

	return nil
}

// installRealtime 组装实时网关：逻辑层提供令牌校验与消息落库，
// 指标层作为观察者接入
func installRealtime(app *core.Core) {
	gatewayOpts := []realtime.GatewayOption{
		realtime.WithObserver(app.Metrics()),
		realtime.WithTaskRelayGuard(func(role string) bool {
			return app.Srv().RBAC().CheckPermission(role, srv.PermissionEdit)
		}),
	}
	if timeout := app.Cfg().Realtime.StoreTimeout; timeout > 0 {
		gatewayOpts = append(gatewayOpts, realtime.WithStoreTimeout(time.Duration(timeout)*time.Second))
	}

	gateway := realtime.NewGateway(
		v1.NewRealtimeAuth(app),
		v1.NewMessageRelay(app),
		gatewayOpts...,
	)
	app.Srv().InstallRealtime(gateway)
}

func NewProcessCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunProcess(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunProcess(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	p := process.NewProcess(app)
	p.Start()
	fmt.Println("Process starting...")
	sigs := make(chan os.Signal, 1)
	// 监听 os.Interrupt (Ctrl+C) 和 syscall.SIGTERM (kill)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	// 阻塞等待信号
	<-sigs
	p.Stop()
	return nil
}

func NewInitCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "initialize admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunInit(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunInit(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))

	token, err := v1.NewAuthLogic(context.Background(), app).InitAdminUser(app.DefaultAppid())
	if err != nil {
		return err
	}

	fmt.Println("Admin access token:", token)
	return nil
}
