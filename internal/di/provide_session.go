package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/dao/sessiondao"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/savaki/auth-broker/internal/session"
)

const redisPingTimeout = 5 * time.Second

// ProvideSessionStore selects the server-side session store for SESSION_BACKEND.
func ProvideSessionStore(ctx context.Context, config *services.Config, client *dynamodb.Client) (session.Store, error) {
	logger := zerolog.Ctx(ctx)

	switch config.SessionBackend {
	case services.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
		}

		logger.Info().Str("addr", config.RedisAddr).Msg("Using redis session store")
		return session.NewRedisStore(rdb, config.SessionTTL), nil

	case services.SessionBackendDynamoDB:
		logger.Info().Str("table", config.SessionTable).Msg("Using dynamodb session store")
		return session.NewDynamoStore(sessiondao.New(client, config.SessionTable), config.SessionTTL), nil

	case services.SessionBackendMemory:
		logger.Warn().Msg("Using in-memory session store; sessions are lost on restart")
		return session.NewMemoryStore(config.SessionTTL), nil

	default:
		return nil, fmt.Errorf("unknown session backend: %s", config.SessionBackend)
	}
}
