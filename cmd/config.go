package main

import "time"

type Config struct {
	RoomQueueSize      int           `env:"ROOM_QUEUE_SIZE,default=256"`
	RoomIdleTimeout    time.Duration `env:"ROOM_IDLE_TIMEOUT,default=5m"`
	TelemetryBuffer    int           `env:"TELEMETRY_BUFFER_SIZE,default=1024"`
	SinkTimeout        time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=15s"`
	QueueWarnPercent   int           `env:"QUEUE_WARN_PERCENT,default=80"`
	ActionTimeout      time.Duration `env:"ACTION_TIMEOUT,default=10s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	SendBufferSize     int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	ReadLimitBytes     int64         `env:"READ_LIMIT_BYTES,default=65536"`
	InboundRate        float64       `env:"INBOUND_RATE_PER_SECOND,default=20"`
	InboundBurst       int           `env:"INBOUND_BURST,default=40"`
	RejoinTokenSecret  string        `env:"REJOIN_TOKEN_SECRET,required=true"`
	RejoinTokenTTL     time.Duration `env:"REJOIN_TOKEN_TTL,default=168h"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
	ClientURL          string        `env:"CLIENT_URL,default=http://localhost:3000"`
	Host               string        `env:"HOST,default=0.0.0.0"`
	Port               int           `env:"PORT,default=3001"`
	DebugInspectorPort int           `env:"DEBUG_INSPECTOR_PORT,default=8081"`
}
