package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"pumpradar/internal/application/port"
	"pumpradar/internal/infrastructure/config"
	"pumpradar/internal/infrastructure/storage"
	"pumpradar/internal/infrastructure/storage/composite"
	pgrepo "pumpradar/internal/infrastructure/storage/postgres"
	redisrepo "pumpradar/internal/infrastructure/storage/redis"
	sqliterepo "pumpradar/internal/infrastructure/storage/sqlite"
)

// 未启用任何持久化时内存里保留的事件数
const memoryEvents = 500

// Container 包含所有存储依赖
type Container struct {
	cfg          *config.Config
	redisClient  *redis.Client
	redisRepo    *redisrepo.Repo
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *pgrepo.Repo
	events       port.EventRepository
	closeOnce    sync.Once
	closerChain  []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if cfg.Storage.Enabled {
		if err := c.initStorage(); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	c.events = c.buildEventRepository()

	return c, nil
}

// initStorage 初始化存储层（Redis、SQLite、Postgres）
func (c *Container) initStorage() error {
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}

	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rc := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	c.redisRepo = redisrepo.New(
		rdb,
		rc.Prefix,
		time.Duration(rc.TTLSeconds)*time.Second,
		rc.EventStream,
		rc.EventChannel,
	)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rc.Addr).
		Int("db", rc.DB).
		Str("channel", c.redisRepo.Channel()).
		Msg("redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}

	c.postgresRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

// buildEventRepository 启用的仓储扇出写入；一个都没有时退化为内存环
func (c *Container) buildEventRepository() port.EventRepository {
	var repos []port.EventRepository
	// 读取时按顺序取第一个成功的，SQLite 查询最便宜
	if c.sqliteRepo != nil {
		repos = append(repos, c.sqliteRepo)
	}
	if c.postgresRepo != nil {
		repos = append(repos, c.postgresRepo)
	}
	if c.redisRepo != nil {
		repos = append(repos, c.redisRepo)
	}

	switch len(repos) {
	case 0:
		return storage.NewInMemoryEventRepository(memoryEvents)
	case 1:
		return repos[0]
	default:
		return composite.New(repos...)
	}
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// RedisClient 获取 Redis 客户端
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// RedisRepo 获取 Redis 仓储
func (c *Container) RedisRepo() *redisrepo.Repo {
	return c.redisRepo
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

func (c *Container) PostgresRepo() *pgrepo.Repo {
	return c.postgresRepo
}

// EventRepository 事件仓储，不会返回 nil
func (c *Container) EventRepository() port.EventRepository {
	return c.events
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
