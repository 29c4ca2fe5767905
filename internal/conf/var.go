package conf

var (
	Version   = "dev"
	BuiltAt   string
	GitCommit string
)

var Conf *Config
