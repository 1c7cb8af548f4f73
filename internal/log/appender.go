package log

import "io"

// MultiWriter fans each write out to every appender. A failing appender does
// not stop the others; the last error is returned.
type MultiWriter struct {
	writers []io.Writer
	closers []io.Closer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

func (m *MultiWriter) Len() int {
	return len(m.writers)
}

// Close closes the appenders the writer opened itself. Console streams are
// left alone.
func (m *MultiWriter) Close() error {
	var err error
	for _, c := range m.closers {
		if e := c.Close(); e != nil {
			err = e
		}
	}
	m.closers = nil
	return err
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}
