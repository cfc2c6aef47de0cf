package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Thread retirement sweep, daily at 02:00
	CronScheduleThreadRetirement string `env:"CRON_SCHEDULE_THREAD_RETIREMENT" envDefault:"0 0 2 * * *"`
}
