package app

import (
	"context"
	"time"

	"github.com/humanbelnik/boardmate/internal/config"
	http_init "github.com/humanbelnik/boardmate/internal/delivery/http/init"
	http_user_middleware "github.com/humanbelnik/boardmate/internal/delivery/http/middleware/user"
	http_participant "github.com/humanbelnik/boardmate/internal/delivery/http/participant"
	http_room "github.com/humanbelnik/boardmate/internal/delivery/http/room"
	http_user "github.com/humanbelnik/boardmate/internal/delivery/http/user"
	ws_room "github.com/humanbelnik/boardmate/internal/delivery/ws/room"
	infra_redis_init "github.com/humanbelnik/boardmate/internal/infra/redis/init"
	infra_redis_notifier "github.com/humanbelnik/boardmate/internal/infra/redis/notifier"
	infra_redis_roomid_set "github.com/humanbelnik/boardmate/internal/infra/redis/roomid_set"
	infra_telemetry "github.com/humanbelnik/boardmate/internal/infra/telemetry"
	service_notifier "github.com/humanbelnik/boardmate/internal/service/notifier"
	usecase_admission "github.com/humanbelnik/boardmate/internal/usecase/admission"
	usecase_room "github.com/humanbelnik/boardmate/internal/usecase/room"
	usecase_user "github.com/humanbelnik/boardmate/internal/usecase/user"
	"github.com/rs/zerolog/log"
)

const (
	joinableSetKey  = "boardmate:joinable_rooms"
	shutdownTimeout = 5 * time.Second
)

// Go runs the service until ctx is cancelled.
func Go(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := infra_telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
	}

	transactor, closeStorage := OpenStorage(cfg)
	defer func() {
		if err := closeStorage(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}
	}()

	hub := ws_room.New(log.With().Str("component", "ws_hub").Logger())
	sinks := []service_notifier.Sink{hub}

	var joinable usecase_room.JoinableSet
	if cfg.Redis.Enabled {
		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
		defer redisConn.Close()

		roomSet := infra_redis_roomid_set.New(redisConn, joinableSetKey)
		joinable = roomSet
		sinks = append(sinks,
			infra_redis_notifier.New(redisConn),
			service_notifier.NewJoinable(roomSet),
		)
	}
	notifier := service_notifier.NewMulti(sinks...)

	admissionLogger := log.With().Str("component", "admission").Logger()
	pessimistic := usecase_admission.NewPessimistic(transactor, notifier, admissionLogger)
	optimistic := usecase_admission.NewOptimistic(transactor, notifier, admissionLogger, cfg.Admission.MaxRetry)
	selector, err := usecase_admission.NewSelector(cfg.Admission.Strategy, pessimistic, optimistic)
	if err != nil {
		return err
	}

	roomUC := usecase_room.New(transactor, notifier, joinable, log.With().Str("component", "room").Logger())
	userUC := usecase_user.New(transactor)

	httpLogger := log.With().Str("component", "http").Logger()
	userRequired := http_user_middleware.New(httpLogger).UserRequired()

	controllerPool := http_init.NewControllerPool(cfg.Mode, httpLogger)
	controllerPool.Add(http_user.New(userUC, httpLogger))
	controllerPool.Add(http_room.New(roomUC, hub, userRequired, httpLogger))
	controllerPool.Add(http_participant.New(selector, roomUC, userRequired, httpLogger))
	controllerPool.Register()
	controllerPool.Bind(cfg.HTTP.Host, cfg.HTTP.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- controllerPool.RunAll()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := controllerPool.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}
	return err
}
