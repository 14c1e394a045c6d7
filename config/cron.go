package config

// Built-in cron job names. Schedules come from AppConfig.
const (
	JobPMScheduler         = "pm_scheduler"
	JobCycleCountScheduler = "cycle_count_scheduler"
)

// CronSchedules maps built-in job names to their cron specs.
func CronSchedules() map[string]string {
	if AppConfig == nil {
		LoadAppConfig()
	}
	return map[string]string{
		JobPMScheduler:         AppConfig.PMSchedule,
		JobCycleCountScheduler: AppConfig.CycleCountSchedule,
	}
}
