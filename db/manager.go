package db

import (
	"context"
	"fmt"
	"log"
	"strings"

	"stocksocial/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// Store - единственный общий ресурс сервиса. Передаётся в сервисы явно,
// в тестах подменяется sqlite в памяти.
type Store struct {
	ORM *gorm.DB
}

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
			NoLowerCase:   false,
		},
	}
}

// Connect открывает хранилище по конфигу и прогоняет миграции
func Connect(conf *config.ConfigSchema) (*Store, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is not loaded")
	}

	var (
		store *Store
		err   error
	)
	switch conf.Databases.Driver {
	case "sqlite":
		path := conf.Databases.SQLitePath
		if path == "" {
			path = "stocksocial.db"
		}
		store, err = OpenSQLite(fmt.Sprintf("file:%s?_foreign_keys=on", path))
	case "postgres":
		store, err = openPostgres(conf)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Databases.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(store.ORM); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return store, nil
}

func openPostgres(conf *config.ConfigSchema) (*Store, error) {
	if conf.Databases.Master.Host == "" {
		return nil, fmt.Errorf("master database configuration is missing")
	}

	masterDSN := dsnFromConfig(conf.Databases.Master)
	replicaDSNs := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	for _, r := range conf.Databases.Replicas {
		replicaDSNs = append(replicaDSNs, postgres.Open(dsnFromConfig(r)))
	}

	orm, err := gorm.Open(postgres.Open(masterDSN), gormConfig())
	if err != nil {
		return nil, err
	}

	if len(replicaDSNs) > 0 {
		err = orm.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicaDSNs,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, err
		}
		log.Printf("Registered %d read replicas", len(replicaDSNs))
	}
	return &Store{ORM: orm}, nil
}

// OpenSQLite открывает sqlite (файл или память). Соединение одно:
// shared cache в памяти не переживает параллельные транзакции.
func OpenSQLite(dsn string) (*Store, error) {
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	orm, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &Store{ORM: orm}, nil
}

// Read возвращает подключение для чтения (реплики, если они есть)
func (s *Store) Read(ctx context.Context) *gorm.DB {
	return s.ORM.WithContext(ctx).Clauses(dbresolver.Read)
}

// Write возвращает подключение для записи (мастер)
func (s *Store) Write(ctx context.Context) *gorm.DB {
	return s.ORM.WithContext(ctx).Clauses(dbresolver.Write)
}

// Transaction выполняет fn в транзакции на мастере
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.Write(ctx).Transaction(fn)
}

func (s *Store) Close() error {
	sqlDB, err := s.ORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
