/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Pion logging adapter - 把 webrtc 内部日志接入统一日志出口
 */
package utils

import (
	"github.com/pion/logging"
)

// PionLoggerFactory adapts our Logger to pion's LoggerFactory so
// webrtc/vnet internals log through the same callback sink
type PionLoggerFactory struct {
	// Level applied to every scoped logger created by this factory
	Level LogLevel
	// Callback routes the scoped loggers into the shell's log sink
	Callback LogCallback
}

// NewPionLoggerFactory creates a factory at Info level
func NewPionLoggerFactory() *PionLoggerFactory {
	return &PionLoggerFactory{Level: LogLevelInfo}
}

// NewLogger implements logging.LoggerFactory
func (f *PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	l := NewLogger("pion." + scope)
	l.SetLevel(f.Level)
	if f.Callback != nil {
		l.SetCallback(f.Callback)
	}
	return &pionLogger{logger: l}
}

// pionLogger implements logging.LeveledLogger on top of Logger
type pionLogger struct {
	logger *Logger
}

func (p *pionLogger) Trace(msg string) { p.logger.Debug("%s", msg) }
func (p *pionLogger) Tracef(format string, args ...interface{}) {
	p.logger.Debug(format, args...)
}
func (p *pionLogger) Debug(msg string) { p.logger.Debug("%s", msg) }
func (p *pionLogger) Debugf(format string, args ...interface{}) {
	p.logger.Debug(format, args...)
}
func (p *pionLogger) Info(msg string) { p.logger.Info("%s", msg) }
func (p *pionLogger) Infof(format string, args ...interface{}) {
	p.logger.Info(format, args...)
}
func (p *pionLogger) Warn(msg string) { p.logger.Warn("%s", msg) }
func (p *pionLogger) Warnf(format string, args ...interface{}) {
	p.logger.Warn(format, args...)
}
func (p *pionLogger) Error(msg string) { p.logger.Error("%s", msg) }
func (p *pionLogger) Errorf(format string, args ...interface{}) {
	p.logger.Error(format, args...)
}

var _ logging.LoggerFactory = (*PionLoggerFactory)(nil)
