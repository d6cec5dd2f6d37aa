package main

import (
	"fmt"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/repository"
	"studydrive-downloader/internal/util"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции БД и создать счётчик скачиваний",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
		if err != nil {
			return fmt.Errorf("не удалось подключиться к БД: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(cmd.Context()); err != nil {
			return err
		}
		if err := repository.NewCounterRepository(db).Ensure(cmd.Context(), db, model.DownloadCounterName); err != nil {
			return err
		}

		log.Println("БД готова к работе")
		return nil
	},
}

// loadConfig : конфигурация из --config и настройка логирования по ней
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации %s: %w", configPath, err)
	}
	if err := util.ConfigureLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}
