// Package logger builds the process-wide logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process logger. It is usable before Init runs.
var Log = logrus.New()

// Options controls where and how verbosely the logger writes.
type Options struct {
	Level string
	// File, when set, receives a rotated copy of every entry.
	File string
	JSON bool
}

// Init configures Log and returns it.
func Init(opts Options) *logrus.Logger {
	Log = New(opts, os.Stdout)
	return Log
}

// New builds a logger writing to out and, optionally, to a rotated file.
func New(opts Options, out io.Writer) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	l.SetOutput(out)
	return l
}
