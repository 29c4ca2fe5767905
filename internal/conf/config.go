package conf

import "time"

type Database struct {
	Type        string `json:"type" env:"TYPE"`
	Host        string `json:"host" env:"HOST"`
	Port        int    `json:"port" env:"PORT"`
	User        string `json:"user" env:"USER"`
	Password    string `json:"password" env:"PASS"`
	Name        string `json:"name" env:"NAME"`
	DBFile      string `json:"db_file" env:"FILE"`
	SSLMode     string `json:"ssl_mode" env:"SSL_MODE"`
	DSN         string `json:"dsn" env:"DSN"`
}

type OneDrive struct {
	ClientID     string `json:"client_id" env:"CLIENT_ID"`
	ClientSecret string `json:"client_secret" env:"CLIENT_SECRET"`
	RootPath     string `json:"root_path" env:"ROOT_PATH"`
	Tenant       string `json:"tenant" env:"TENANT"`
	GraphURL     string `json:"graph_url" env:"GRAPH_URL"`
	// AuthURL and TokenURL override the Microsoft identity endpoints.
	AuthURL  string `json:"auth_url" env:"AUTH_URL"`
	TokenURL string `json:"token_url" env:"TOKEN_URL"`
}

type Server struct {
	Address    string `json:"address" env:"ADDR"`
	HttpsPort  int    `json:"https_port" env:"HTTPS_PORT"`
	ServerURI  string `json:"server_uri" env:"URI"`
	CertFile   string `json:"cert_file" env:"CERT_FILE"`
	KeyFile    string `json:"key_file" env:"KEY_FILE"`
	AdminToken string `json:"admin_token" env:"ADMIN_TOKEN"`
}

type Tasks struct {
	Workers          int           `json:"workers" env:"WORKERS"`
	ChunkSize        int64         `json:"chunk_size" env:"CHUNK_SIZE"`
	PollInterval     time.Duration `json:"poll_interval" env:"POLL_INTERVAL"`
	ProgressInterval time.Duration `json:"progress_interval" env:"PROGRESS_INTERVAL"`
}

type LogConfig struct {
	Enable     bool   `json:"enable" env:"ENABLE"`
	Level      string `json:"level" env:"LEVEL"`
	Name       string `json:"name" env:"NAME"`
	MaxSize    int    `json:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `json:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `json:"max_age" env:"MAX_AGE"`
	Compress   bool   `json:"compress" env:"COMPRESS"`
	Color      bool   `json:"color" env:"COLOR"`
}

type Config struct {
	Database Database  `json:"database" envPrefix:"DB_"`
	OneDrive OneDrive  `json:"onedrive" envPrefix:"OD_"`
	Server   Server    `json:"server" envPrefix:"SERVER_"`
	Tasks    Tasks     `json:"tasks" envPrefix:"TASKS_"`
	Log      LogConfig `json:"log" envPrefix:"LOG_"`
	Debug    bool      `json:"debug" env:"DEBUG"`
}

func DefaultConfig(dataDir string) *Config {
	return &Config{
		Database: Database{
			Type:        "sqlite3",
			Port:        0,
			DBFile:      dataDir + "/data.db",
		},
		OneDrive: OneDrive{
			RootPath: "/Telegram",
			Tenant:   "common",
			GraphURL: "https://graph.microsoft.com/v1.0",
		},
		Server: Server{
			Address:   "0.0.0.0",
			HttpsPort: 8080,
			ServerURI: "https://localhost:8080",
			CertFile:  "ssl/server.crt",
			KeyFile:   "ssl/server.key",
		},
		Tasks: Tasks{
			Workers:          5,
			ChunkSize:        10 * 320 * 1024,
			PollInterval:     time.Second,
			ProgressInterval: 5 * time.Second,
		},
		Log: LogConfig{
			Enable:     true,
			Level:      "info",
			Name:       dataDir + "/log/log.log",
			MaxSize:    50,
			MaxBackups: 30,
			MaxAge:     28,
			Color:      true,
		},
	}
}
