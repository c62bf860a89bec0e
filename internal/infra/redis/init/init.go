package infra_redis_init

import (
	"fmt"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/boardmate/internal/config"
	"github.com/rs/zerolog/log"
)

func MustEstablishConn(cfg config.RedisCache) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})

	if err := client.Ping().Err(); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	return client
}
