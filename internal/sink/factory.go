package sink

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/repository"
)

// New builds the configured sinks in order. On error, sinks already built are closed.
func New(ctx context.Context, cfg common.SinkConfig, rc common.RedisConfig, logger *slog.Logger) ([]Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var sinks []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	for _, name := range cfg.Types {
		var (
			s   Sink
			err error
		)
		switch v := constants.CanonicalVariant(name); v {
		case constants.SinkCSV:
			s = NewCSVSink(cfg.CSVPath)
		case constants.SinkJSONL:
			s = NewJSONLSink(cfg.JSONLPath)
		case constants.SinkXLSX:
			s = NewXLSXSink(cfg.XLSXPath)
		case constants.SinkEventGrid:
			s, err = NewEventGridSink(cfg.EventGrid.Endpoint, cfg.EventGrid.Key, logger)
		case constants.SinkPusher:
			s = NewPusherSink(PusherConfig{
				AppID:   cfg.Pusher.AppID,
				Key:     cfg.Pusher.Key,
				Secret:  cfg.Pusher.Secret,
				Cluster: cfg.Pusher.Cluster,
				Channel: cfg.Pusher.Channel,
				Host:    cfg.Pusher.Host,
				Timeout: cfg.Timeout,
			})
		case constants.SinkRedis:
			client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
			s = NewRedisSink(client, cfg.RedisChannel, true)
		case constants.SinkSQL:
			var db *repository.DB
			db, err = repository.Open(ctx, repository.Config{Dialect: cfg.SQL.Dialect, DSN: cfg.SQL.DSN}, logger)
			if err == nil {
				s, err = NewSQLSink(ctx, db)
				if err != nil {
					_ = db.Close()
				}
			}
		default:
			err = common.UnsupportedVariant("sink", v)
		}
		if err != nil {
			return fail(err)
		}
		logger.Info("sink.ready", "sink", s.Name())
		sinks = append(sinks, s)
	}
	return sinks, nil
}
