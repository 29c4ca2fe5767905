package bootstrap

import (
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"github.com/OpenListTeam/tgdrive/cmd/flags"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB() {
	if err := OpenDB(conf.Conf.Database); err != nil {
		log.Fatalf("failed to connect database: %+v", err)
	}
}

// OpenDB connects to the configured database and migrates the task and
// session tables.
func OpenDB(database conf.Database) error {
	logLevel := logger.Silent
	if flags.Debug {
		logLevel = logger.Info
	}
	newLogger := logger.New(
		stdlog.New(log.StandardLogger().Out, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	gormConfig := &gorm.Config{Logger: newLogger}
	dialector, err := dialectorFor(database)
	if err != nil {
		return err
	}
	dB, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s database", database.Type)
	}
	return db.Init(dB)
}

func dialectorFor(database conf.Database) (gorm.Dialector, error) {
	switch database.Type {
	case "sqlite3":
		if !(strings.HasSuffix(database.DBFile, ".db") && len(database.DBFile) > 3) {
			return nil, errors.Errorf("db name error: %s", database.DBFile)
		}
		return sqlite.Open(fmt.Sprintf("%s?_journal=WAL&_vacuum=incremental", database.DBFile)), nil
	case "mysql":
		dsn := database.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&tls=%s",
				database.User, database.Password, database.Host, database.Port, database.Name, database.SSLMode)
		}
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := database.DSN
		if dsn == "" {
			if database.Password != "" {
				dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
					database.Host, database.User, database.Password, database.Name, database.Port, database.SSLMode)
			} else {
				dsn = fmt.Sprintf("host=%s user=%s dbname=%s port=%d sslmode=%s",
					database.Host, database.User, database.Name, database.Port, database.SSLMode)
			}
		}
		return postgres.Open(dsn), nil
	default:
		return nil, errors.Errorf("not supported database type: %s", database.Type)
	}
}
