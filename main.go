package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/cache"
	"github.com/rail-hub/rail-hub/internal/config"
	"github.com/rail-hub/rail-hub/internal/logging"
	"github.com/rail-hub/rail-hub/internal/refresh"
	"github.com/rail-hub/rail-hub/internal/roster"
	"github.com/rail-hub/rail-hub/internal/server"
	"github.com/rail-hub/rail-hub/internal/tracker"
	"github.com/rail-hub/rail-hub/internal/upstream"
	"github.com/rail-hub/rail-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["upstream"] = cfg.UpstreamBase
		fields["snapshot"] = cfg.SnapshotPath
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	trainRoster, err := roster.Load(cfg.RosterPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载列车清单失败: %v\n", err)
		return 1
	}

	// 启动遵循“配置 → 缓存/队列 → 刷新驱动 → 维护巡检 → Fiber server”顺序，
	// 所有组件共享同一份 Store 与 Queue 实例，不存在环境单例。
	store := cache.NewStore(cfg.SnapshotPath, logger)
	queue := refresh.NewQueue()
	client := upstream.NewClient(cfg.UpstreamBase, cfg.UpstreamTimeout.DurationValue(), logger)

	driver := refresh.NewDriver(refresh.DriverOptions{
		Queue:     queue,
		Store:     store,
		Fetcher:   client,
		Logger:    logger,
		BatchSize: cfg.RefreshBatchSize,
		Pause:     cfg.RefreshPause.DurationValue(),
	})
	scheduler := refresh.NewScheduler(refresh.SchedulerOptions{
		Store:       store,
		Driver:      driver,
		Roster:      trainRoster,
		Logger:      logger,
		Interval:    cfg.MaintenanceInterval.DurationValue(),
		Margin:      cfg.ExpiryMargin.DurationValue(),
		SampleLimit: cfg.IdleSampleLimit,
	})
	svc := tracker.NewService(tracker.Options{
		Store:            store,
		Driver:           driver,
		Fetcher:          client,
		Roster:           trainRoster,
		Logger:           logger,
		SnapshotInterval: cfg.SnapshotInterval.DurationValue(),
	})

	// 重启后先恢复快照：过期的旧数据立即可读，补抓在后台进行。
	svc.Bootstrap()

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.ListenPort
	fields["upstream"] = cfg.UpstreamBase
	fields["roster"] = trainRoster.Len()
	fields["cached"] = store.Len()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := serve(cfg, svc, scheduler, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// serve 启动 Fiber 服务与后台任务，阻塞到收到退出信号后优雅关停。
func serve(cfg *config.Config, svc *tracker.Service, scheduler *refresh.Scheduler, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Service:    svc,
		ListenPort: cfg.ListenPort,
	})
	if err != nil {
		return err
	}

	go scheduler.Run(ctx)

	// 周期快照与关停前的最后一次落盘都由 svc.Run 负责。
	persistDone := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(persistDone)
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.ListenPort,
	}).Info("Fiber 服务启动")

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.ListenPort))
	}()

	select {
	case err := <-listenErr:
		stop()
		<-persistDone
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP 关停超时")
	}

	<-persistDone
	logger.WithField("action", "shutdown").Info("进程退出，快照已落盘")
	return nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("rail-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 RAIL_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("RAIL_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
