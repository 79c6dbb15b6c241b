package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

type contextKey struct{}

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(jsonFormatter())
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Setup applies the configured level. Development mode switches to colored
// text output; every other mode logs JSON for the log pipeline.
func Setup(level, mode string) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}
	log.SetLevel(parsedLevel)

	if mode == "development" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
		return
	}
	log.SetFormatter(jsonFormatter())
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Logger exposes the underlying logrus logger for libraries that take one.
func Logger() *logrus.Logger {
	return log
}

// NewContext stores entry in ctx so collaborators called during a cycle log
// with the cycle's fields.
func NewContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, entry)
}

// FromContext returns the entry stored by NewContext, or a bare entry.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(log)
}

// CycleIDFromContext returns the cycle_id field of the stored entry, if any.
func CycleIDFromContext(ctx context.Context) string {
	if id, ok := FromContext(ctx).Data["cycle_id"].(string); ok {
		return id
	}
	return ""
}

func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return log.WithError(err)
}

// WithFailure tags an entry with err and its error kind.
func WithFailure(entry *logrus.Entry, err error) *logrus.Entry {
	return entry.WithFields(logrus.Fields{
		logrus.ErrorKey: err,
		"error_kind":    apperrors.KindOf(err),
	})
}

func WithCluster(clusterID string) *logrus.Entry {
	return log.WithField("cluster_id", clusterID)
}

// WithCycle tags an entry with the cluster and the decision cycle it belongs to.
func WithCycle(clusterID, cycleID string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"cluster_id": clusterID,
		"cycle_id":   cycleID,
	})
}

func Debug(msg string) {
	log.Debug(msg)
}

func Info(msg string) {
	log.Info(msg)
}

func Warn(msg string) {
	log.Warn(msg)
}

func Error(msg string) {
	log.Error(msg)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}
