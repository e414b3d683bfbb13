package db

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/go-gorm/caches/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
	"go.uber.org/zap"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewDatabase(ctx core.Context) (*gorm.DB, []core.ContextBuilderOption) {
	cfg := ctx.Config()
	rootLogger := ctx.Logger()

	dbType := cfg.Config().Core.DB.Type
	var db *gorm.DB
	var err error

	switch dbType {
	case "mysql":
		db, err = openMySQLDatabase(cfg, rootLogger)
	case "sqlite":
		db, err = openSQLiteDatabase(cfg.Config().Core.DB.File, rootLogger)
	default:
		panic(fmt.Sprintf("unsupported database type: %s", dbType))
	}

	if err != nil {
		panic(err)
	}

	cacher := getCacher(cfg, rootLogger)
	if cacher != nil {
		cache := &caches.Caches{Conf: &caches.Config{
			Cacher: cacher,
		}}
		err := db.Use(cache)
		if err != nil {
			return nil, nil
		}
	}

	ctxOpts := []core.ContextBuilderOption{
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			return db.AutoMigrate(models.GetModels()...)
		}),
		core.ContextWithDB(db),
		core.ContextWithExitFunc(func(ctx core.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}),
	}

	return db, ctxOpts
}

func openMySQLDatabase(cfg config.Manager, rootLogger *core.Logger) (*gorm.DB, error) {
	username := cfg.Config().Core.DB.Username
	password := cfg.Config().Core.DB.Password
	host := cfg.Config().Core.DB.Host
	port := cfg.Config().Core.DB.Port
	dbname := cfg.Config().Core.DB.Name
	charset := cfg.Config().Core.DB.Charset

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local", username, password, host, port, dbname, charset)

	return gorm.Open(gormMysql.Open(dsn), &gorm.Config{
		Logger: newLogger(rootLogger.Logger, rootLogger.Level()),
	})
}

func openSQLiteDatabase(file string, rootLogger *core.Logger) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(file), &gorm.Config{
		Logger: newLogger(rootLogger.Logger, rootLogger.Level()),
	})
}

func getCacher(cm config.Manager, logger *core.Logger) caches.Cacher {
	if cm.Config().Core.DB.Cache == nil {
		return nil
	}

	switch cm.Config().Core.DB.Cache.Mode {
	case config.CacheModeNone, config.CacheMode(""):
		return nil
	case config.CacheModeMemory:
		return &memoryCacher{}
	case config.CacheModeRedis:
		rcfg, ok := cm.Config().Core.DB.Cache.Options.(*config.RedisConfig)
		if !ok {
			logger.Fatal("invalid redis config")
			return nil
		}
		return &redisCacher{
			redis.NewClient(&redis.Options{
				Addr:     rcfg.Address,
				Password: rcfg.Password,
				DB:       rcfg.DB,
			}),
		}
	default:
		logger.Fatal("invalid cache mode", zap.String("mode", string(cm.Config().Core.DB.Cache.Mode)))
	}

	return nil
}

func RetryOnLock(db *gorm.DB, operation func(*gorm.DB) *gorm.DB) error {
	attempt := 0

	for {
		result := operation(db)
		if result.Error == nil {
			return nil
		}

		if !isLockError(result.Error) {
			return result.Error
		}

		lockBackoff(attempt)
		attempt++
	}
}

// RetryableTransaction runs fn in a transaction and retries the whole
// transaction when the database reports a lock conflict. The rollback
// discards any partial work, so fn must be safe to re-run.
func RetryableTransaction(ctx core.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	attempt := 0

	for {
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil || !isLockError(err) {
			return err
		}

		lockBackoff(attempt)
		attempt++
	}
}

func lockBackoff(attempt int) {
	initialBackoff := 100 * time.Millisecond
	maxBackoff := 10 * time.Second

	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * float64(initialBackoff)
	time.Sleep(time.Duration(math.Min(backoff+jitter, float64(maxBackoff))))
}

// isLockError checks if the given error is a database lock error
func isLockError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "lock wait timeout") ||
		strings.Contains(errMsg, "database is locked") ||
		strings.Contains(errMsg, "too many connections")
}

// IsDuplicateKeyError reports whether err came from a uniqueness constraint,
// across the supported drivers.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "constraint failed: unique")
}
