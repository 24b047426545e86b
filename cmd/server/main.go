package main

import (
	"flag"
	"os"

	"lottery-service/internal/conf"
	"lottery-service/internal/server"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/joho/godotenv"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	Name     = "lottery-service"
	Version  = "v1.0.0"
	flagconf string
	id, _    = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server, mq *server.MQConsumerServer) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			gs,
			hs,
			mq,
		),
	)
}

// newLogger builds the go-pkg JSON logger; the log section of the config is optional.
func newLogger(c *conf.Log) log.Logger {
	cfg := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/lottery-service.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}
	if c != nil {
		if c.Level != "" {
			cfg.Level = c.Level
		}
		if c.Format != "" {
			cfg.Format = c.Format
		}
		if c.FilePath != "" {
			cfg.FilePath = c.FilePath
		}
	}
	return logger.NewLogger(cfg)
}

// logStartup reports the listeners and the optional pieces this process runs with.
func logStartup(h *log.Helper, bc *conf.Bootstrap) {
	httpAddr, grpcAddr := "default", "default"
	if s := bc.Server; s != nil {
		if s.Http != nil && s.Http.Addr != "" {
			httpAddr = s.Http.Addr
		}
		if s.Grpc != nil && s.Grpc.Addr != "" {
			grpcAddr = s.Grpc.Addr
		}
	}
	mqArchive := bc.Data != nil && bc.Data.Rocketmq != nil && bc.Data.Rocketmq.Enabled
	admins := 0
	if bc.Auth != nil {
		admins = len(bc.Auth.AdminUsernames)
	}
	h.Infof("lottery service starting: http=%s grpc=%s mq_archive=%v admins=%d", httpAddr, grpcAddr, mqArchive, admins)
}

func main() {
	flag.Parse()

	// .env 可选，仅用于本地开发
	_ = godotenv.Load()

	// 初始化 Kratos Config，环境变量 LOTTERY_* 覆盖文件配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
			env.NewSource("LOTTERY_"),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	loggerInstance := log.With(newLogger(bc.Log),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)

	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	logStartup(log.NewHelper(loggerInstance), &bc)

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
