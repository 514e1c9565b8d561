// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"net/url"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeLayout = "2006-01-02 15:04:05.999999"

var logger *zap.Logger

func init() {
	// setup default logger
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
}

// Logger get current logger
func Logger() *zap.Logger {
	return logger
}

// CloseLogger mutes everything below fatal. Tests and quiet commands use it.
func CloseLogger() {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.FatalLevel)
	var err error
	logger, err = cfg.Build()
	if err != nil {
		panic(err)
	}
}

func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.String("log-path", "", "path of log file")
	flagSet.Int("log-max-size", 100, "maximum size in megabytes of the log file")
	flagSet.Int("log-max-age", 0, "maximum number of days to retain old log files")
	flagSet.Int("log-max-backups", 0, "maximum number of old log files to retain")
}

// SetLogger replaces the logger. Debug mode writes colored console lines at debug level,
// otherwise JSON lines at info level. Logs go to stderr, and also to a rotated file if
// --log-path is set, so that command output stays parseable.
func SetLogger(flagSet *pflag.FlagSet, debug bool) {
	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if sink := fileSink(flagSet); sink != nil {
		writers = append(writers, zapcore.AddSync(sink))
	}
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	logger = zap.New(zapcore.NewCore(newEncoder(debug), zap.CombineWriteSyncers(writers...), level))
}

func newEncoder(debug bool) zapcore.Encoder {
	if debug {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	return zapcore.NewJSONEncoder(cfg)
}

func fileSink(flagSet *pflag.FlagSet) *lumberjack.Logger {
	if flagSet == nil || !flagSet.Changed("log-path") {
		return nil
	}
	sink := &lumberjack.Logger{}
	sink.Filename, _ = flagSet.GetString("log-path")
	sink.MaxSize, _ = flagSet.GetInt("log-max-size")
	sink.MaxAge, _ = flagSet.GetInt("log-max-age")
	sink.MaxBackups, _ = flagSet.GetInt("log-max-backups")
	return sink
}

const mysqlPrefix = "mysql://"

// RedactDBURL masks credentials in a datastore URL before it is logged.
func RedactDBURL(rawURL string) string {
	if strings.HasPrefix(rawURL, mysqlPrefix) {
		parsed, err := mysql.ParseDSN(rawURL[len(mysqlPrefix):])
		if err != nil {
			return rawURL
		}
		parsed.User = strings.Repeat("x", len(parsed.User))
		parsed.Passwd = strings.Repeat("x", len(parsed.Passwd))
		return mysqlPrefix + parsed.FormatDSN()
	} else {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return rawURL
		}
		if parsed.User == nil {
			return parsed.String()
		}
		username := parsed.User.Username()
		password, _ := parsed.User.Password()
		parsed.User = url.UserPassword(strings.Repeat("x", len(username)), strings.Repeat("x", len(password)))
		return parsed.String()
	}
}
