package log

import (
	"fmt"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/arpreflect/internal/config"
)

// AddFileAppender adds a rotating file output.
func (m *MultiWriter) AddFileAppender(fc config.FileOutputConfig) error {
	if fc.Path == "" {
		return fmt.Errorf("file output requires 'path' field")
	}
	lj := &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.Rotation.MaxSizeMB,  // megabytes
		MaxBackups: fc.Rotation.MaxBackups, // number of backups
		MaxAge:     fc.Rotation.MaxAgeDays, // days
		Compress:   fc.Rotation.Compress,
	}
	m.writers = append(m.writers, lj)
	m.closers = append(m.closers, lj)
	return nil
}
