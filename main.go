package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dataset-hub/dataset-hub/internal/config"
	"github.com/dataset-hub/dataset-hub/internal/dataset"
	"github.com/dataset-hub/dataset-hub/internal/localcache"
	"github.com/dataset-hub/dataset-hub/internal/logging"
	"github.com/dataset-hub/dataset-hub/internal/remote"
	"github.com/dataset-hub/dataset-hub/internal/resolver"
	"github.com/dataset-hub/dataset-hub/internal/server"
	"github.com/dataset-hub/dataset-hub/internal/server/routes"
	"github.com/dataset-hub/dataset-hub/internal/validate"
	"github.com/dataset-hub/dataset-hub/internal/version"
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

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	registry := dataset.Default()

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["datasets"] = len(registry.Keys())
		fields["registry"] = registry.Keys()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动遵循“配置 → 日志 → 注册表 → 本地缓存 → 远程仓库 → 解析器 →
	// Fiber server”顺序，所有请求共享同一条解析链。
	store, err := localcache.NewStore(cfg.Global.CacheDir, cfg.Global.FreshnessTTL.DurationValue())
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	var remoteStore resolver.RemoteStore
	if cfg.RemoteEnabled() {
		client, err := remote.NewClient(cfg.Global.RemoteBaseURL, cfg.Global.RemoteTag, &http.Client{
			Timeout: cfg.Global.RemoteTimeout.DurationValue(),
		})
		if err != nil {
			fmt.Fprintf(stdErr, "初始化远程仓库客户端失败: %v\n", err)
			return 1
		}
		remoteStore = client
	}

	engine, err := resolver.New(resolver.Options{
		Registry:      registry,
		Local:         store,
		Remote:        remoteStore,
		Logger:        logger,
		MaxRetries:    cfg.Global.MaxRetries,
		BaseDelay:     cfg.Global.InitialBackoff.DurationValue(),
		BackoffCap:    cfg.Global.BackoffCap.DurationValue(),
		Rules:         datasetRules(),
		FreshnessFor:  cfg.EffectiveFreshness,
		MaxRetriesFor: cfg.EffectiveMaxRetries,
		// 全局 WriteThrough 关闭时所有数据集都不做写穿透。
		CacheEnabled: func(id string) bool {
			return cfg.Global.WriteThrough && cfg.CacheEnabled(id)
		},
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建解析器失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["datasets"] = len(registry.Keys())
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_dir"] = store.Dir()
	fields["remote"] = cfg.RemoteEnabled()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, registry, engine, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("dataset-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 DATASET_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("DATASET_HUB_CONFIG")
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

// datasetRules 为内置数据集声明结构校验规则；未列出的数据集只要求非空表。
func datasetRules() map[string]validate.Rules {
	return map[string]validate.Rules{
		"bacen_series": {
			RequiredColumns: []string{"code", "label", "date", "value"},
			DateColumn:      "date",
		},
		"bacen_metadata": {
			RequiredColumns: []string{"code", "title"},
		},
		"ipca_monthly": {
			RequiredColumns: []string{"period", "value"},
		},
	}
}

func startHTTPServer(cfg *config.Config, registry *dataset.Registry, engine server.DatasetResolver, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		Resolver:   engine,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDatasetRoutes(app, registry)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
