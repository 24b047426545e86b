package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lottery-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	_ = godotenv.Load()

	// 初始化配置
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

	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/lottery-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}
	if bc.Log != nil && bc.Log.Level != "" {
		logConfig.Level = bc.Log.Level
	}
	loggerInstance := logger.NewLogger(logConfig)

	// 添加基本字段
	loggerInstance = log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "lottery-cron",
	)

	logHelper := log.NewHelper(loggerInstance)

	// 初始化应用
	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// 按抽奖日所在时区调度（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds(), cron.WithLocation(app.cal.Location()))

	// 每日汇总与待核对报告 - 每天 00:05 执行
	_, err = cronScheduler.AddFunc("0 5 0 * * *", func() {
		logHelper.Info("[CRON] Starting daily report...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := app.DailyReport(ctx); err != nil {
			logHelper.Errorf("[CRON] Error building daily report: %v", err)
			return
		}
		logHelper.Info("[CRON] Finished daily report")
	})
	if err != nil {
		logHelper.Errorf("Failed to add daily report job: %v", err)
	}

	// 全局记录裁剪 - 每天 03:30 执行
	_, err = cronScheduler.AddFunc("0 30 3 * * *", func() {
		logHelper.Info("[CRON] Starting record trim...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := app.TrimRecords(ctx); err != nil {
			logHelper.Errorf("[CRON] Error trimming records: %v", err)
			return
		}
		logHelper.Info("[CRON] Finished record trim")
	})
	if err != nil {
		logHelper.Errorf("Failed to add record trim job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Info("Scheduled jobs:")
	logHelper.Info("  - Daily report: Every day at 00:05")
	logHelper.Info("  - Record trim: Every day at 03:30")
	logHelper.Info("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
}
