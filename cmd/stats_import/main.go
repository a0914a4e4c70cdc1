package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"stocksocial/config"
	"stocksocial/db"
	"stocksocial/models"
	"stocksocial/services"

	"gopkg.in/yaml.v2"
)

// ImportFile - выгрузка внешнего аналитического джоба
type ImportFile struct {
	Statistics   []models.StockStatistic `yaml:"statistics"`
	Correlations []ListCorrelations      `yaml:"correlations"`
}

// ListCorrelations - пары одного списка; заменяют все прежние пары списка
type ListCorrelations struct {
	Owner    string                    `yaml:"owner"`
	ListName string                    `yaml:"list_name"`
	Entries  []models.CorrelationEntry `yaml:"entries"`
}

func readImportFile(path string) (*ImportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ImportFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &file, nil
}

func initializeStatisticsService(ctx context.Context, conf *config.ConfigSchema, store *db.Store) (*services.StatisticsService, func()) {
	cleanup := func() {}
	var opts []services.CorrelationOption
	if conf.Redis.Enabled {
		addr := fmt.Sprintf("%s:%d", conf.Redis.Host, conf.Redis.Port)
		client, err := services.NewRedisClient(ctx, addr, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			log.Printf("WARN: redis unavailable, cached matrices expire by TTL: %v", err)
		} else {
			opts = append(opts, services.WithMatrixCache(services.NewRedisMatrixCache(client, conf.Redis.MatrixTTL)))
			cleanup = func() { client.Close() }
		}
	}
	return services.NewStatisticsService(store, services.NewCorrelationService(store, opts...)), cleanup
}

func run(ctx context.Context, configPath, filePath string) error {
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	file, err := readImportFile(filePath)
	if err != nil {
		return err
	}

	store, err := db.Connect(conf)
	if err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}
	defer store.Close()

	statistics, cleanup := initializeStatisticsService(ctx, conf, store)
	defer cleanup()

	if err := statistics.UpsertStatistics(ctx, file.Statistics); err != nil {
		return err
	}
	for _, lc := range file.Correlations {
		n, err := statistics.ReplaceCorrelations(ctx, lc.Owner, lc.ListName, lc.Entries)
		if err != nil {
			return fmt.Errorf("correlations for %s/%s: %w", lc.Owner, lc.ListName, err)
		}
		log.Printf("Imported %d correlation pairs for %s/%s", n, lc.Owner, lc.ListName)
	}
	return nil
}

func main() {
	var configPath, filePath string
	flag.StringVar(&configPath, "config", "etc/app.yaml", "Path to the configuration file")
	flag.StringVar(&filePath, "file", "", "Path to the statistics YAML file")
	flag.Parse()

	if filePath == "" {
		log.Fatal("-file is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, configPath, filePath); err != nil {
		log.Fatal("Import failed: ", err)
	}
	log.Println("Import finished")
}
