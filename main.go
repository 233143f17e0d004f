package main

import (
	"flag"
	"log"

	"rajpath_backend/internal/app"
	"rajpath_backend/internal/config"
	"rajpath_backend/pkg/configwatcher"
	"rajpath_backend/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	watch := flag.Bool("watch-config", false, "监听配置文件变更并热加载")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	if *watch {
		go configwatcher.WatchConfig("configs/config.yaml", application.ReloadConfig)
	}

	application.Run()
}
