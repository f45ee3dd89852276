package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	FetchTimeout      int

	// Catalog policy
	HistoryLimit    int
	HealthFanOut    int
	HealthThreshold int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
