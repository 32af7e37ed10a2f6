package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion  string = "v0.3.0"
	ProgBaseName string = "devlogd"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath     string = "/etc/devlogd.json"
	DefaultDomainFile     string = "/etc/devlogd/domains.yaml"
	DefaultSocketPath     string = "/dev/unix/socket/devlogInput"
	DefaultKmsgPath       string = "/dev/kmsg"
	DefaultListenerCount  int    = 2
	DefaultMinQueueSize   int    = 512
	DefaultMaxQueueSize   int    = 4096
	DefaultBufferPerType  int    = 262144
	MinBufferPerType      int    = 64 * 1024
	MaxBufferPerType      int    = 512 * 1024 * 1024
	DefaultKmsgMaxFailure int    = 10

	DefaultKmsgRetryInterval time.Duration = 1 * time.Second
	DefaultKmsgPollTimeout   time.Duration = 500 * time.Millisecond
	DefaultFlowWindow        time.Duration = 1 * time.Second

	// Timeout values
	DaemonShutdownTimeout time.Duration = 10 * time.Second
	ForwardDialTimeout    time.Duration = 5 * time.Second

	// Metric HTTP server
	HTTPListenPort   int           = 18514       // Default listen port
	HTTPListenAddr   string        = "localhost" // Metric queries only exposed to local machine
	HTTPReadTimeout  time.Duration = 30 * time.Second
	HTTPWriteTimeout time.Duration = 10 * time.Second
	HTTPIdleTimeout  time.Duration = 180 * time.Second

	// Namespacing Name Components
	NSDaemon    string = "Daemon"
	NSMetric    string = "Metrics"
	NSMetricSrv string = "Server"
	NSTest      string = "Test"
	NSCollect   string = "Collector"
	NSFlow      string = "FlowControl"
	NSStats     string = "Statistics"
	NSStore     string = "Store"
	NSKmsg      string = "Kmsg"
	NSTransport string = "Transport"
	NSListen    string = "Listener"
	NSForward   string = "Forward"
	NSQueue     string = "Queue"
)

const (
	// Metric query server paths
	DataPath        string = "/data/"
	DiscoveryPath   string = "/discover/"
	AggregationPath string = "/aggregate/"
	StatsPath       string = "/stats"
	FlowPath        string = "/flowctrl"
	SettingsPath    string = "/settings"
	BufferPath      string = "/buffer"

	// Metric aggregation types
	MetricSum string = "sum"
	MetricAvg string = "avg"
	MetricMin string = "min"
	MetricMax string = "max"
)
