// cmd/a2a-ledger/store.go
package main

import (
	"context"
	"fmt"

	"github.com/kathir-ks/a2a-ledger/internal/config"
	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/internal/repository/memory"
	redisrepo "github.com/kathir-ks/a2a-ledger/internal/repository/redis"
	log "github.com/sirupsen/logrus"
)

// store bundles the task journal and the ledger ownership locker.
type store struct {
	tasks  repository.TaskRepository
	locker repository.Locker
	close  func() error
}

// openStore uses Redis when REDIS_ADDR is set and in-process memory
// otherwise. Memory locks only exclude drivers inside one process.
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.RedisAddr == "" {
		log.Debug("REDIS_ADDR not set, using in-memory task journal and locks")
		return &store{
			tasks:  memory.NewMemoryTaskRepository(memory.WithTTL(cfg.TaskTTL)),
			locker: memory.NewLocker(),
			close:  func() error { return nil },
		}, nil
	}

	client := redisrepo.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Infof("Using Redis at %s (prefix %q)", cfg.RedisAddr, cfg.KeyPrefix)
	return &store{
		tasks: redisrepo.NewTaskRepository(client,
			redisrepo.WithPrefix(cfg.KeyPrefix),
			redisrepo.WithTTL(cfg.TaskTTL)),
		locker: redisrepo.NewLocker(client, cfg.KeyPrefix),
		close:  client.Close,
	}, nil
}
