package bootstrap

import (
	"io"
	stdlog "log"
	"os"

	"github.com/OpenListTeam/tgdrive/cmd/flags"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

func init() {
	formatter := logrus.TextFormatter{
		ForceColors:               true,
		EnvironmentOverrideColors: true,
		TimestampFormat:           "2006-01-02 15:04:05",
		FullTimestamp:             true,
	}
	logrus.SetFormatter(&formatter)
	utils.Log.SetFormatter(&formatter)
}

func setLog(l *logrus.Logger, logConfig conf.LogConfig) {
	level, err := logrus.ParseLevel(logConfig.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if flags.Debug || conf.Conf.Debug {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetReportCaller(level >= logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:               logConfig.Color,
		DisableColors:             !logConfig.Color,
		EnvironmentOverrideColors: true,
		TimestampFormat:           "2006-01-02 15:04:05",
		FullTimestamp:             true,
	})
}

func InitLog() {
	logConfig := conf.Conf.Log
	setLog(logrus.StandardLogger(), logConfig)
	setLog(utils.Log, logConfig)
	if logConfig.Enable {
		var w io.Writer = &lumberjack.Logger{
			Filename:   logConfig.Name,
			MaxSize:    logConfig.MaxSize,
			MaxBackups: logConfig.MaxBackups,
			MaxAge:     logConfig.MaxAge,
			Compress:   logConfig.Compress,
		}
		if flags.Debug || flags.LogStd {
			w = io.MultiWriter(os.Stdout, w)
		}
		logrus.SetOutput(w)
		utils.Log.SetOutput(w)
	}
	stdlog.SetOutput(logrus.StandardLogger().Out)
	utils.Log.Infof("init logrus...")
}
