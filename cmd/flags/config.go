package flags

var (
	DataDir  string
	Debug    bool
	NoPrefix bool
	LogStd   bool
)
